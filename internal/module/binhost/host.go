// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package binhost provides a Host implementation for binary modules
// using HashiCorp's go-plugin system. Each module runs in its own
// subprocess, so same-named internals of two modules can never collide
// and a crashing module cannot take the host down; only the
// modsdk.Module capability crosses the process boundary.
package binhost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/sethvargo/go-retry"

	"github.com/gamedock/gamedock/internal/module"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

// handshake retry tuning: a freshly built module binary can be slow to
// come up on first start.
const (
	handshakeRetryBase = 100 * time.Millisecond
	handshakeRetries   = 3
)

// DefaultCallTimeout bounds one RPC into a module when the caller's
// context carries no deadline of its own.
const DefaultCallTimeout = 5 * time.Second

// Sentinel errors for programmatic error checking.
var (
	// ErrHostClosed is returned when operations are attempted on a closed host.
	ErrHostClosed = errors.New("host is closed")
	// ErrModuleNotLoaded is returned when operating on a module that isn't loaded.
	ErrModuleNotLoaded = errors.New("module not loaded")
	// ErrModuleAlreadyLoaded is returned when loading a module that's already loaded.
	ErrModuleAlreadyLoaded = errors.New("module already loaded")
)

// Compile-time interface check.
var _ module.Host = (*Host)(nil)

// PluginMap is the map of plugins the host can dispense.
var PluginMap = map[string]hashiplug.Plugin{
	modsdk.PluginName: &modsdk.ModulePlugin{},
}

// PluginClient wraps go-plugin client for testability.
type PluginClient interface {
	// Client returns the RPC client protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the module process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the given executable path.
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct{}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig: modsdk.HandshakeConfig,
		Plugins:         PluginMap,
		Cmd:             exec.Command(execPath), // #nosec G204 -- execPath resolved from module manifest; manifests validated during discovery
	})
}

// Host manages binary modules via HashiCorp go-plugin.
type Host struct {
	clientFactory ClientFactory
	modules       map[string]*loadedModule
	mu            sync.RWMutex
	closed        bool
}

// loadedModule holds state for a single loaded binary module.
type loadedModule struct {
	manifest *module.Manifest
	client   PluginClient
	module   modsdk.Module
}

// NewHost creates a new binary module host.
func NewHost() *Host {
	return &Host{
		clientFactory: &DefaultClientFactory{},
		modules:       make(map[string]*loadedModule),
	}
}

// NewHostWithFactory creates a host with a custom client factory (for testing).
// Panics if factory is nil.
func NewHostWithFactory(factory ClientFactory) *Host {
	if factory == nil {
		panic("binhost: factory cannot be nil")
	}
	return &Host{
		clientFactory: factory,
		modules:       make(map[string]*loadedModule),
	}
}

// Load starts the module subprocess and dispenses its capability handle.
func (h *Host) Load(ctx context.Context, manifest *module.Manifest, dir string) (modsdk.Module, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}

	if _, ok := h.modules[manifest.Name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleAlreadyLoaded, manifest.Name)
	}

	if manifest.Type != module.TypeBinary {
		return nil, fmt.Errorf("module %s is not a binary module", manifest.Name)
	}

	desc := &module.Descriptor{Name: manifest.Name, Dir: dir, Manifest: manifest}
	execPath := desc.ExecutablePath()
	if _, err := os.Stat(execPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("module executable not found: %s: %w", execPath, err)
		}
		return nil, fmt.Errorf("cannot access module executable %s: %w", execPath, err)
	}

	client := h.clientFactory.NewClient(execPath)

	rpcClient, err := h.connect(ctx, client)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to module %s: %w", manifest.Name, err)
	}

	raw, err := rpcClient.Dispense(modsdk.PluginName)
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense module %s: %w", manifest.Name, err)
	}

	mod, ok := raw.(modsdk.Module)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("module %s does not implement the module capability", manifest.Name)
	}

	wrapped := &timeoutModule{inner: mod, timeout: DefaultCallTimeout}
	h.modules[manifest.Name] = &loadedModule{
		manifest: manifest,
		client:   client,
		module:   wrapped,
	}

	return wrapped, nil
}

// timeoutModule wraps a dispensed module so every call is bounded even
// when the caller passes an unbounded context. A module subprocess that
// hangs must never hang the host with it.
type timeoutModule struct {
	inner   modsdk.Module
	timeout time.Duration
}

func (t *timeoutModule) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *timeoutModule) Launch(ctx context.Context) (modsdk.Surface, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.Launch(ctx)
}

func (t *timeoutModule) Stop(ctx context.Context) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.Stop(ctx)
}

func (t *timeoutModule) HandleMessage(ctx context.Context, msg modsdk.Message) (modsdk.Message, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return t.inner.HandleMessage(ctx, msg)
}

func (t *timeoutModule) Metadata() modsdk.Metadata {
	return t.inner.Metadata()
}

// connect performs the go-plugin handshake with a short backoff.
func (h *Host) connect(ctx context.Context, client PluginClient) (hashiplug.ClientProtocol, error) {
	var rpcClient hashiplug.ClientProtocol
	backoff := retry.WithMaxRetries(handshakeRetries, retry.NewFibonacci(handshakeRetryBase))
	err := retry.Do(ctx, backoff, func(context.Context) error {
		var err error
		rpcClient, err = client.Client()
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rpcClient, nil
}

// Unload tears down a module and kills its subprocess.
func (h *Host) Unload(_ context.Context, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHostClosed
	}

	m, ok := h.modules[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotLoaded, name)
	}

	if m.client != nil {
		m.client.Kill()
	}

	delete(h.modules, name)
	return nil
}

// Modules returns names of all loaded modules.
func (h *Host) Modules() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil
	}

	names := make([]string, 0, len(h.modules))
	for name := range h.modules {
		names = append(names, name)
	}
	return names
}

// Close shuts down the host and all module subprocesses.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, m := range h.modules {
		if m.client != nil {
			m.client.Kill()
		}
	}

	h.closed = true
	clear(h.modules)
	return nil
}
