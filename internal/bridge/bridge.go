// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

// Package bridge provides the process-wide publish/subscribe channel
// connecting the host and loaded modules. A Bridge is explicitly
// constructed and passed to whoever needs it; there is no ambient
// global instance.
package bridge

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/oklog/ulid/v2"

	"github.com/gamedock/gamedock/internal/observability"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

// Consumer receives every published message.
type Consumer func(modsdk.Message)

// Subscription is the opaque handle returned by Subscribe. The only
// legal operation external code performs on it is Unsubscribe, which
// is idempotent: once inactive, a subscription stays inactive forever.
type Subscription struct {
	bridge *Bridge
	id     uint64
	active atomic.Bool
}

// Unsubscribe removes the consumer from the bridge. Calling it twice
// is a no-op, not an error.
func (s *Subscription) Unsubscribe() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.bridge.remove(s.id)
}

// Active reports whether the subscription still receives messages.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// entry pairs a consumer with its subscription identity.
type entry struct {
	id uint64
	fn Consumer
	// key is the consumer's function identity, used to reject duplicate
	// registration of the same function value.
	key uintptr
}

// consumerKey returns the identity of a consumer function value.
// reflect.Value.Pointer would return the code pointer, which collides
// for distinct closures built from the same literal; the underlying
// funcval pointer distinguishes them while still matching when the
// caller registers the same stored value twice.
func consumerKey(fn Consumer) uintptr {
	return uintptr(*(*unsafe.Pointer)(unsafe.Pointer(&fn)))
}

// Bridge is a thread-safe broadcast channel. The consumer list is
// copy-on-write: Publish iterates an immutable snapshot, so consumers
// may subscribe or unsubscribe (including themselves) from inside a
// callback without corrupting iteration.
type Bridge struct {
	mu        sync.Mutex
	consumers []entry
	nextID    uint64
	returnCB  func()
	metrics   *observability.Metrics
}

// Option configures the Bridge.
type Option func(*Bridge)

// WithMetrics wires publish/failure counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// New creates a bridge with no consumers.
func New(opts ...Option) *Bridge {
	b := &Bridge{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a consumer and returns its subscription handle.
//
// A nil consumer is rejected with a warning and an inactive handle.
// Registering the identical function value twice is detected and
// rejected the same way, preventing double delivery.
func (b *Bridge) Subscribe(fn Consumer) *Subscription {
	if fn == nil {
		slog.Warn("rejecting nil bridge consumer")
		return &Subscription{bridge: b}
	}

	key := consumerKey(fn)

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.consumers {
		if e.key == key {
			slog.Warn("rejecting duplicate bridge consumer")
			return &Subscription{bridge: b}
		}
	}

	b.nextID++
	sub := &Subscription{bridge: b, id: b.nextID}
	sub.active.Store(true)

	next := make([]entry, len(b.consumers), len(b.consumers)+1)
	copy(next, b.consumers)
	b.consumers = append(next, entry{id: sub.id, fn: fn, key: key})

	return sub
}

// Unsubscribe deactivates the subscription. Equivalent to calling
// sub.Unsubscribe(); nil handles are ignored.
func (b *Bridge) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.Unsubscribe()
}

func (b *Bridge) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make([]entry, 0, len(b.consumers))
	for _, e := range b.consumers {
		if e.id != id {
			next = append(next, e)
		}
	}
	b.consumers = next
}

// Publish delivers msg to every currently subscribed consumer, in
// subscription order, on the calling goroutine. Publishing with zero
// consumers is a normal state (e.g. before the UI attaches its mirror
// consumer) and is merely logged.
//
// A consumer that panics is caught and logged; delivery continues to
// the remaining consumers. One broken listener never starves the rest.
func (b *Bridge) Publish(msg modsdk.Message) {
	msgID := ulid.Make()

	b.mu.Lock()
	snapshot := b.consumers
	b.mu.Unlock()

	if b.metrics != nil {
		b.metrics.MessagesPublished.Inc()
	}

	if len(snapshot) == 0 {
		slog.Debug("message dropped: no consumers subscribed",
			"message_id", msgID.String(),
			"function", msg.Function())
		return
	}

	for _, e := range snapshot {
		b.deliver(e, msg, msgID)
	}
}

func (b *Bridge) deliver(e entry, msg modsdk.Message, msgID ulid.ULID) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.ConsumerFailures.Inc()
			}
			slog.Error("bridge consumer failed, continuing delivery",
				"message_id", msgID.String(),
				"function", msg.Function(),
				"panic", r)
		}
	}()
	e.fn(msg)
}

// ConsumerCount returns the number of active consumers. Diagnostic only.
func (b *Bridge) ConsumerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.consumers)
}

// SetReturnCallback installs the single lobby-return callback. This is
// a control signal with exactly zero or one recipient, distinct from
// the broadcast consumer list: the running module asks the host to
// tear it down and show the module picker again. Installing a new
// callback replaces the previous one.
func (b *Bridge) SetReturnCallback(cb func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.returnCB = cb
}

// ClearReturnCallback removes the lobby-return callback.
func (b *Bridge) ClearReturnCallback() {
	b.SetReturnCallback(nil)
}

// TriggerReturn invokes the lobby-return callback if one is set.
// With no callback registered this is a logged no-op, not an error.
func (b *Bridge) TriggerReturn() {
	b.mu.Lock()
	cb := b.returnCB
	b.mu.Unlock()

	if cb == nil {
		slog.Info("lobby return requested with no callback registered")
		return
	}
	cb()
}
