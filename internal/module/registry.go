// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"sync/atomic"

	"github.com/gamedock/gamedock/pkg/modsdk"
)

// Registry is the in-memory collection of successfully loaded modules,
// keyed by name. A refresh replaces the whole registry atomically:
// readers observe either the previous pass's snapshot or the new one,
// never a half-updated mix, and entries for removed modules cannot
// linger.
type Registry struct {
	snap atomic.Pointer[registrySnapshot]
}

type registrySnapshot struct {
	order  []LoadedModule
	byName map[string]modsdk.Module
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{}
	r.snap.Store(&registrySnapshot{byName: map[string]modsdk.Module{}})
	return r
}

// Get returns the module registered under name, if any.
func (r *Registry) Get(name string) (modsdk.Module, bool) {
	mod, ok := r.snap.Load().byName[name]
	return mod, ok
}

// All returns the registered modules in load order.
func (r *Registry) All() []LoadedModule {
	snap := r.snap.Load()
	out := make([]LoadedModule, len(snap.order))
	copy(out, snap.order)
	return out
}

// Names returns the registered module names in load order.
func (r *Registry) Names() []string {
	snap := r.snap.Load()
	names := make([]string, len(snap.order))
	for i, lm := range snap.order {
		names[i] = lm.Name
	}
	return names
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.snap.Load().order)
}

// Replace installs a brand-new snapshot built from mods, discarding
// the previous one wholesale. Duplicate names must have been resolved
// by the caller; the first occurrence wins here as a last line of
// defense.
func (r *Registry) Replace(mods []LoadedModule) {
	snap := &registrySnapshot{
		order:  make([]LoadedModule, 0, len(mods)),
		byName: make(map[string]modsdk.Module, len(mods)),
	}
	for _, lm := range mods {
		if _, exists := snap.byName[lm.Name]; exists {
			continue
		}
		snap.order = append(snap.order, lm)
		snap.byName[lm.Name] = lm.Module
	}
	r.snap.Store(snap)
}
