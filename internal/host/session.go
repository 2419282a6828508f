// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package host drives play sessions: it connects a loaded module to
// the message bridge and owns the module's launch/stop lifecycle.
package host

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/oops"

	"github.com/gamedock/gamedock/internal/bridge"
	"github.com/gamedock/gamedock/pkg/errutil"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

// sourceKey tags bridge messages with the name of the module (or the
// host) that published them, so a session never feeds a module its own
// output back.
const sourceKey = "source"

// hostSource is the source tag for messages the host itself publishes.
const hostSource = "host"

// Session runs one module's play session. It launches the module,
// forwards bridge traffic to it, publishes the module's responses, and
// guarantees the module is stopped exactly once no matter how the
// session ends.
type Session struct {
	name   string
	module modsdk.Module
	bridge *bridge.Bridge
	// events restricts which bridge functions are forwarded to the
	// module. nil forwards everything.
	events map[string]bool

	mu      sync.Mutex
	sub     *bridge.Subscription
	surface modsdk.Surface
	started bool

	stopOnce sync.Once
	stopErr  error
	done     chan struct{}
}

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithEvents limits the bridge functions forwarded to the module to the
// given set, typically the events list from the module's manifest. An
// empty set forwards nothing; without this option everything is
// forwarded.
func WithEvents(events []string) SessionOption {
	return func(s *Session) {
		s.events = make(map[string]bool, len(events))
		for _, e := range events {
			s.events[e] = true
		}
	}
}

// NewSession creates a session for one loaded module. Nothing runs
// until Start.
func NewSession(name string, mod modsdk.Module, b *bridge.Bridge, opts ...SessionOption) *Session {
	s := &Session{
		name:   name,
		module: mod,
		bridge: b,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start validates the start message, launches the module, delivers the
// start message, and begins forwarding bridge traffic. The returned
// surface is what the shell embeds for the session's duration.
func (s *Session) Start(ctx context.Context, startMsg modsdk.Message) (modsdk.Surface, error) {
	if err := modsdk.CheckStartMessage(startMsg); err != nil {
		return modsdk.Surface{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return modsdk.Surface{}, oops.With("module", s.name).New("session already started")
	}

	surface, err := s.module.Launch(ctx)
	if err != nil {
		return modsdk.Surface{}, oops.With("module", s.name).Hint("module launch failed").Wrap(err)
	}

	resp, err := s.module.HandleMessage(ctx, startMsg)
	if err != nil {
		// Roll the launch back; a module that rejects its start message
		// is not left half-running.
		if stopErr := s.module.Stop(ctx); stopErr != nil {
			slog.Warn("failed to stop module after rejected start",
				"module", s.name,
				"error", stopErr)
		}
		return modsdk.Surface{}, oops.With("module", s.name).Hint("module rejected start message").Wrap(err)
	}

	s.sub = s.bridge.Subscribe(s.consume)
	s.surface = surface
	s.started = true

	if resp != nil {
		s.bridge.Publish(resp.With(sourceKey, s.name))
	}

	slog.Info("session started",
		"module", s.name,
		"surface", surface.Kind)
	return surface, nil
}

// Surface returns the surface the module presented at launch.
func (s *Session) Surface() modsdk.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// Done is closed when the session has fully ended.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// consume forwards one bridge message to the module and publishes the
// module's response. A message the session itself published is skipped;
// an "end" from the module finishes the session.
func (s *Session) consume(msg modsdk.Message) {
	if src, _ := msg[sourceKey].(string); src == s.name {
		return
	}
	if s.events != nil && !s.events[msg.Function()] {
		return
	}

	resp, err := s.module.HandleMessage(context.Background(), msg)
	if err != nil {
		errutil.LogError(slog.Default(), "module failed to handle message", err)
		return
	}
	if resp == nil {
		return
	}

	s.bridge.Publish(resp.With(sourceKey, s.name))

	if resp.Function() == modsdk.FunctionEnd {
		// The module announced the session is over; return control to
		// the shell and stop the module.
		go func() {
			s.bridge.TriggerReturn()
			if err := s.End(context.Background()); err != nil {
				errutil.LogError(slog.Default(), "session teardown failed", err)
			}
		}()
	}
}

// End tears the session down: unsubscribes from the bridge and stops
// the module. Safe to call any number of times; the module's Stop runs
// exactly once.
func (s *Session) End(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		sub := s.sub
		s.sub = nil
		s.mu.Unlock()

		if sub != nil {
			sub.Unsubscribe()
		}

		s.stopErr = s.module.Stop(ctx)
		close(s.done)

		slog.Info("session ended", "module", s.name)
	})
	return s.stopErr
}
