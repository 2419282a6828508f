// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GameDock Contributors

package bridge_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gamedock/gamedock/internal/bridge"
	"github.com/gamedock/gamedock/pkg/modsdk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBridge_PublishDeliversInSubscriptionOrder(t *testing.T) {
	b := bridge.New()

	var order []string
	b.Subscribe(func(modsdk.Message) { order = append(order, "a") })
	b.Subscribe(func(modsdk.Message) { order = append(order, "b") })
	b.Subscribe(func(modsdk.Message) { order = append(order, "c") })

	b.Publish(modsdk.NewMessage("start"))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBridge_PublishWithNoConsumersIsNoop(t *testing.T) {
	b := bridge.New()

	assert.NotPanics(t, func() {
		b.Publish(modsdk.NewMessage("start"))
	})
	assert.Equal(t, 0, b.ConsumerCount())
}

func TestBridge_ConsumerIsolation(t *testing.T) {
	b := bridge.New()

	var aCalls, cCalls int
	b.Subscribe(func(modsdk.Message) { aCalls++ })
	b.Subscribe(func(modsdk.Message) { panic("broken consumer") })
	b.Subscribe(func(modsdk.Message) { cCalls++ })

	assert.NotPanics(t, func() {
		b.Publish(modsdk.NewMessage("start"))
	})

	assert.Equal(t, 1, aCalls, "consumer before the broken one must be invoked exactly once")
	assert.Equal(t, 1, cCalls, "consumer after the broken one must be invoked exactly once")
}

func TestBridge_UnsubscribeIsIdempotent(t *testing.T) {
	b := bridge.New()

	calls := 0
	sub := b.Subscribe(func(modsdk.Message) { calls++ })
	require.Equal(t, 1, b.ConsumerCount())

	sub.Unsubscribe()
	countAfterFirst := b.ConsumerCount()
	sub.Unsubscribe()

	assert.Equal(t, countAfterFirst, b.ConsumerCount())
	assert.False(t, sub.Active())

	b.Publish(modsdk.NewMessage("start"))
	assert.Zero(t, calls)
}

func TestBridge_UnsubscribeNilHandle(t *testing.T) {
	b := bridge.New()
	assert.NotPanics(t, func() { b.Unsubscribe(nil) })
}

func TestBridge_SelfUnsubscribeDuringPublish(t *testing.T) {
	b := bridge.New()

	var sub *bridge.Subscription
	selfCalls := 0
	otherCalls := 0

	sub = b.Subscribe(func(modsdk.Message) {
		selfCalls++
		sub.Unsubscribe()
	})
	b.Subscribe(func(modsdk.Message) { otherCalls++ })

	// First publish: both delivered, self unsubscribes mid-iteration.
	b.Publish(modsdk.NewMessage("start"))
	// Second publish: only the surviving consumer.
	b.Publish(modsdk.NewMessage("start"))

	assert.Equal(t, 1, selfCalls)
	assert.Equal(t, 2, otherCalls)
	assert.Equal(t, 1, b.ConsumerCount())
}

func TestBridge_SubscribeDuringPublishAffectsLaterPublishesOnly(t *testing.T) {
	b := bridge.New()

	lateCalls := 0
	late := func(modsdk.Message) { lateCalls++ }

	b.Subscribe(func(modsdk.Message) {
		if b.ConsumerCount() == 1 {
			b.Subscribe(late)
		}
	})

	b.Publish(modsdk.NewMessage("start"))
	assert.Zero(t, lateCalls, "consumer added mid-publish must not receive the in-flight message")

	b.Publish(modsdk.NewMessage("start"))
	assert.Equal(t, 1, lateCalls)
}

func TestBridge_NilConsumerRejected(t *testing.T) {
	b := bridge.New()

	sub := b.Subscribe(nil)
	require.NotNil(t, sub)
	assert.False(t, sub.Active())
	assert.Equal(t, 0, b.ConsumerCount())
	assert.NotPanics(t, sub.Unsubscribe)
}

func TestBridge_DuplicateConsumerRejected(t *testing.T) {
	b := bridge.New()

	calls := 0
	consumer := func(modsdk.Message) { calls++ }

	first := b.Subscribe(consumer)
	second := b.Subscribe(consumer)

	assert.True(t, first.Active())
	assert.False(t, second.Active(), "duplicate registration must yield an inactive subscription")
	assert.Equal(t, 1, b.ConsumerCount())

	b.Publish(modsdk.NewMessage("start"))
	assert.Equal(t, 1, calls, "duplicate registration must not double-deliver")
}

func TestBridge_DistinctClosuresAreNotDuplicates(t *testing.T) {
	b := bridge.New()

	calls := 0
	makeConsumer := func() bridge.Consumer {
		return func(modsdk.Message) { calls++ }
	}

	first := b.Subscribe(makeConsumer())
	second := b.Subscribe(makeConsumer())

	assert.True(t, first.Active())
	assert.True(t, second.Active())
	assert.Equal(t, 2, b.ConsumerCount())

	b.Publish(modsdk.NewMessage("start"))
	assert.Equal(t, 2, calls)
}

func TestBridge_ReturnCallback(t *testing.T) {
	b := bridge.New()

	triggered := 0
	b.SetReturnCallback(func() { triggered++ })
	b.TriggerReturn()
	assert.Equal(t, 1, triggered)

	b.ClearReturnCallback()
	b.TriggerReturn()
	assert.Equal(t, 1, triggered, "cleared callback must not fire")
}

func TestBridge_TriggerReturnWithoutCallbackIsNoop(t *testing.T) {
	b := bridge.New()
	assert.NotPanics(t, b.TriggerReturn)
}

func TestBridge_SetReturnCallbackReplacesPrevious(t *testing.T) {
	b := bridge.New()

	var got string
	b.SetReturnCallback(func() { got = "first" })
	b.SetReturnCallback(func() { got = "second" })
	b.TriggerReturn()

	assert.Equal(t, "second", got)
}

func TestBridge_ConcurrentPublishAndSubscribe(t *testing.T) {
	b := bridge.New()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 50 {
				b.Publish(modsdk.NewMessage("tick"))
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				sub := b.Subscribe(func(modsdk.Message) {})
				sub.Unsubscribe()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.ConsumerCount())
}
