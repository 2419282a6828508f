// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package modsdk

import "context"

// Surface kinds a module can hand back from Launch.
const (
	SurfaceTerminal = "terminal"
	SurfaceWeb      = "web"
)

// Surface is the display-surface handle a module returns from Launch.
// The host shell embeds it; the core only passes it through.
type Surface struct {
	// Kind is one of the Surface* constants.
	Kind string
	// Title is the human-readable window/tab title.
	Title string
	// Addr is where the surface is served (e.g. a local listen address
	// for web surfaces). Empty for terminal surfaces.
	Addr string
}

// Module is the capability contract every loaded game module satisfies.
// The host only ever depends on this interface, never on concrete
// module types.
type Module interface {
	// Launch starts the module's session and returns its display
	// surface. Called exactly once per load; must not block indefinitely.
	Launch(ctx context.Context) (Surface, error)

	// Stop tears the module down and releases everything it acquired.
	// Called exactly once on unload.
	Stop(ctx context.Context) error

	// HandleMessage is the synchronous request/response hook, distinct
	// from the bridge's broadcast model. A nil response means the module
	// has nothing to say.
	HandleMessage(ctx context.Context, msg Message) (Message, error)

	// Metadata describes the module.
	Metadata() Metadata
}
