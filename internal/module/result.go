// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"github.com/oklog/ulid/v2"

	"github.com/gamedock/gamedock/pkg/modsdk"
)

// LoadedModule pairs a module name with its capability handle and the
// manifest it was loaded from.
type LoadedModule struct {
	Name     string
	Module   modsdk.Module
	Manifest *Manifest
}

// Failure records why one module could not be loaded during a pass.
// Reason is short human-readable text the UI layer renders as a
// warning; the core never formats it for display itself.
type Failure struct {
	Name   string
	Reason string
}

// LoadResult is the outcome of one full load pass: modules that made
// it into the registry and modules that failed, both in discovery
// order. Ownership transfers to the caller that requested the pass.
type LoadResult struct {
	// PassID identifies the pass in logs.
	PassID   ulid.ULID
	Loaded   []LoadedModule
	Failures []Failure
}

// LoadedNames returns the names of successfully loaded modules in order.
func (r *LoadResult) LoadedNames() []string {
	names := make([]string, len(r.Loaded))
	for i, lm := range r.Loaded {
		names[i] = lm.Name
	}
	return names
}

// FailureFor returns the recorded failure reason for name, if any.
func (r *LoadResult) FailureFor(name string) (string, bool) {
	for _, f := range r.Failures {
		if f.Name == name {
			return f.Reason, true
		}
	}
	return "", false
}
