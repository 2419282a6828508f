// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package luahost

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/gamedock/gamedock/internal/module"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

// Compile-time interface check.
var _ module.Host = (*Host)(nil)

// Script entry points a module may define. Only handle_message is
// required to do anything useful; the rest have sensible defaults.
const (
	fnLaunch        = "launch"
	fnStop          = "stop"
	fnHandleMessage = "handle_message"
	fnMetadata      = "metadata"
)

// Host manages Lua script modules. Each module gets its own persistent
// interpreter state, so two modules never share globals.
type Host struct {
	factory *StateFactory
	modules map[string]*luaModule
	mu      sync.RWMutex
	closed  bool
}

// NewHost creates a new Lua module host.
func NewHost() *Host {
	return &Host{
		factory: NewStateFactory(),
		modules: make(map[string]*luaModule),
	}
}

// Load reads, compiles, and runs the module's entry script, keeping the
// resulting state alive for the module's lifetime.
func (h *Host) Load(ctx context.Context, manifest *module.Manifest, dir string) (modsdk.Module, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, oops.In("luahost").With("module", manifest.Name).With("operation", "load").New("host is closed")
	}

	if _, ok := h.modules[manifest.Name]; ok {
		return nil, oops.In("luahost").With("module", manifest.Name).With("operation", "load").New("module already loaded")
	}

	if manifest.Type != module.TypeLua || manifest.Lua == nil {
		return nil, oops.In("luahost").With("module", manifest.Name).With("operation", "load").New("module is not a lua module")
	}

	entryPath := filepath.Join(dir, manifest.Lua.Entry)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, oops.In("luahost").With("module", manifest.Name).With("operation", "load").With("path", entryPath).Hint("failed to read entry file").Wrap(err)
	}

	L, err := h.factory.NewState(ctx)
	if err != nil {
		return nil, oops.In("luahost").With("module", manifest.Name).With("operation", "load").Hint("failed to create state").Wrap(err)
	}
	L.SetContext(ctx)

	if err := L.DoString(string(code)); err != nil {
		L.Close()
		return nil, oops.In("luahost").With("module", manifest.Name).With("operation", "load").With("entry", manifest.Lua.Entry).Hint("script error").Wrap(err)
	}

	m := &luaModule{name: manifest.Name, manifest: manifest, state: L}
	h.modules[manifest.Name] = m
	return m, nil
}

// Unload removes a module and closes its interpreter state.
func (h *Host) Unload(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.modules[name]
	if !ok {
		return oops.In("luahost").With("module", name).With("operation", "unload").New("module not loaded")
	}
	m.close()
	delete(h.modules, name)
	return nil
}

// Modules returns names of loaded modules.
func (h *Host) Modules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.modules))
	for name := range h.modules {
		names = append(names, name)
	}
	return names
}

// Close shuts down the host and all interpreter states.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.modules {
		m.close()
	}
	h.closed = true
	h.modules = nil
	return nil
}

// luaModule adapts one interpreter state to the module capability.
// The interpreter is single-threaded; the mutex serializes all calls
// into it.
type luaModule struct {
	name     string
	manifest *module.Manifest
	mu       sync.Mutex
	state    *lua.LState
	closed   bool
}

func (m *luaModule) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.state.Close()
		m.closed = true
	}
}

// Launch calls the script's launch() function if defined. A missing
// launch() means the module presents a plain terminal surface.
func (m *luaModule) Launch(ctx context.Context) (modsdk.Surface, error) {
	ret, defined, err := m.call(ctx, fnLaunch, nil)
	if err != nil {
		return modsdk.Surface{}, err
	}
	surface := modsdk.Surface{Kind: modsdk.SurfaceTerminal, Title: m.name}
	if !defined {
		return surface, nil
	}
	if t, ok := ret.(*lua.LTable); ok {
		if v := t.RawGetString("kind"); v != lua.LNil {
			surface.Kind = v.String()
		}
		if v := t.RawGetString("title"); v != lua.LNil {
			surface.Title = v.String()
		}
		if v := t.RawGetString("addr"); v != lua.LNil {
			surface.Addr = v.String()
		}
	}
	return surface, nil
}

// Stop calls the script's stop() function if defined.
func (m *luaModule) Stop(ctx context.Context) error {
	_, _, err := m.call(ctx, fnStop, nil)
	return err
}

// HandleMessage calls handle_message(msg). A nil or missing return
// means the module has no response.
func (m *luaModule) HandleMessage(ctx context.Context, msg modsdk.Message) (modsdk.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, oops.In("luahost").With("module", m.name).New("module state is closed")
	}

	fn := m.state.GetGlobal(fnHandleMessage)
	if fn.Type() == lua.LTNil {
		return nil, nil
	}

	m.state.SetContext(ctx)
	arg := messageToTable(m.state, msg)
	if err := m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
		return nil, oops.In("luahost").With("module", m.name).With("operation", fnHandleMessage).Wrap(err)
	}

	ret := m.state.Get(-1)
	m.state.Pop(1)

	if ret.Type() == lua.LTNil {
		return nil, nil
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		return nil, oops.In("luahost").With("module", m.name).With("operation", fnHandleMessage).
			With("returned", ret.Type().String()).New("handler returned non-table value")
	}
	return tableToMessage(t), nil
}

// Metadata calls the script's metadata() function if defined, falling
// back to the manifest's name and version.
func (m *luaModule) Metadata() modsdk.Metadata {
	meta := modsdk.Metadata{Name: m.name, Version: m.manifest.Version}

	ret, defined, err := m.call(context.Background(), fnMetadata, nil)
	if err != nil || !defined {
		return meta
	}
	t, ok := ret.(*lua.LTable)
	if !ok {
		return meta
	}

	if v := t.RawGetString("name"); v != lua.LNil {
		meta.Name = v.String()
	}
	if v := t.RawGetString("version"); v != lua.LNil {
		meta.Version = v.String()
	}
	if v := t.RawGetString("author"); v != lua.LNil {
		meta.Author = v.String()
	}
	if v := t.RawGetString("description"); v != lua.LNil {
		meta.Description = v.String()
	}
	if n, ok := t.RawGetString("min_players").(lua.LNumber); ok {
		meta.MinPlayers = int(n)
	}
	if n, ok := t.RawGetString("max_players").(lua.LNumber); ok {
		meta.MaxPlayers = int(n)
	}
	if n, ok := t.RawGetString("estimated_duration_minutes").(lua.LNumber); ok {
		meta.EstimatedDuration = int(n)
	}
	if modes, ok := t.RawGetString("supported_modes").(*lua.LTable); ok {
		modes.ForEach(func(_, v lua.LValue) {
			meta.SupportedModes = append(meta.SupportedModes, v.String())
		})
	}
	if diffs, ok := t.RawGetString("supported_difficulties").(*lua.LTable); ok {
		diffs.ForEach(func(_, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				meta.SupportedDifficulties = append(meta.SupportedDifficulties, int(n))
			}
		})
	}
	return meta
}

// call invokes a global script function with optional arguments. The
// second return reports whether the function was defined at all.
func (m *luaModule) call(ctx context.Context, name string, args []lua.LValue) (lua.LValue, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, false, oops.In("luahost").With("module", m.name).New("module state is closed")
	}

	fn := m.state.GetGlobal(name)
	if fn.Type() == lua.LTNil {
		return lua.LNil, false, nil
	}

	m.state.SetContext(ctx)
	if err := m.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return nil, true, oops.In("luahost").With("module", m.name).With("operation", name).Wrap(err)
	}

	ret := m.state.Get(-1)
	m.state.Pop(1)
	return ret, true, nil
}

// messageToTable converts a message to a Lua table, recursing into
// nested mappings and sequences.
func messageToTable(state *lua.LState, msg modsdk.Message) *lua.LTable {
	t := state.NewTable()
	for k, v := range msg {
		state.SetField(t, k, valueToLua(state, v))
	}
	return t
}

func valueToLua(state *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(val)
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]any:
		t := state.NewTable()
		for k, elem := range val {
			state.SetField(t, k, valueToLua(state, elem))
		}
		return t
	case modsdk.Message:
		return messageToTable(state, val)
	case []any:
		t := state.NewTable()
		for _, elem := range val {
			t.Append(valueToLua(state, elem))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

// tableToMessage converts a Lua table back to a message. Tables with
// only sequential integer keys become slices, everything else maps.
func tableToMessage(t *lua.LTable) modsdk.Message {
	msg := make(modsdk.Message)
	t.ForEach(func(k, v lua.LValue) {
		msg[k.String()] = luaToValue(v)
	})
	return msg
}

func luaToValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LString:
		return string(val)
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			seq := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				seq = append(seq, luaToValue(val.RawGetInt(i)))
			}
			return seq
		}
		m := make(map[string]any)
		val.ForEach(func(k, elem lua.LValue) {
			m[k.String()] = luaToValue(elem)
		})
		return m
	default:
		return nil
	}
}
