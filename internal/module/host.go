// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package module

import (
	"context"

	"github.com/gamedock/gamedock/pkg/modsdk"
)

// Host manages a specific module runtime type. binhost serves binary
// modules as go-plugin subprocesses; luahost runs scripted modules in
// per-module interpreter states. Either way every module gets its own
// isolated namespace and only the modsdk.Module capability crosses the
// boundary.
type Host interface {
	// Load instantiates a module from its manifest and returns the
	// capability handle the registry keeps.
	Load(ctx context.Context, manifest *Manifest, dir string) (modsdk.Module, error)

	// Unload tears down a loaded module and releases its runtime.
	Unload(ctx context.Context, name string) error

	// Modules returns names of all loaded modules.
	Modules() []string

	// Close shuts down the host and all loaded modules.
	Close(ctx context.Context) error
}
