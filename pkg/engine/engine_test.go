package engine_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twmb/eventengine/pkg/eerr"
	"github.com/twmb/eventengine/pkg/engine"
	"github.com/twmb/eventengine/pkg/hook"
	"github.com/twmb/eventengine/pkg/topic"
)

func mustParse(t *testing.T, s string) *topic.Topic {
	t.Helper()
	tp, err := topic.Parse(s)
	require.NoError(t, err)
	return tp
}

func TestExactDelivery(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	require.NoError(t, e.Start())
	defer e.Stop()

	received := make(chan []any, 1)
	tp := mustParse(t, "Order.New")
	e.RegisterHandler(tp, hook.NoTopic(func(args []any, _ map[string]any) error {
		received <- args
		return nil
	}), false)

	require.NoError(t, e.Put(tp, nil, true, "order-1"))

	select {
	case args := <-received:
		assert.Equal(t, []any{"order-1"}, args)
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestWildcardCapture(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	require.NoError(t, e.Start())
	defer e.Stop()

	pattern := mustParse(t, "Market.Data.{symbol}")
	captured := make(chan string, 1)
	e.RegisterHandler(pattern, hook.WithTopic(func(_ *topic.Topic, _ []any, kwargs map[string]any) error {
		published := kwargs["topic"].(*topic.Topic)
		captured <- pattern.Match(published).Captures()["symbol"]
		return nil
	}), false)

	target := mustParse(t, "Market.Data.AAPL")
	require.NoError(t, e.Put(target, nil, true))

	select {
	case symbol := <-captured:
		assert.Equal(t, "AAPL", symbol)
	case <-time.After(time.Second):
		t.Fatal("wildcard handler never invoked")
	}
}

func TestRangeMatchingTwoInvocations(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	require.NoError(t, e.Start())
	defer e.Stop()

	pattern := mustParse(t, "Market.(Equity|Futures).Trade")
	var calls atomic.Int32
	e.RegisterHandler(pattern, hook.NoTopic(func(_ []any, _ map[string]any) error {
		calls.Add(1)
		return nil
	}), false)

	require.NoError(t, e.Put(mustParse(t, "Market.Equity.Trade"), nil, true))
	require.NoError(t, e.Put(mustParse(t, "Market.Futures.Trade"), nil, true))
	require.NoError(t, e.Put(mustParse(t, "Market.Options.Trade"), nil, true))

	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPatternMatchingOneInvocation(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	require.NoError(t, e.Start())
	defer e.Stop()

	pattern := mustParse(t, `Market.Data./^[A-Z]{4}$/`)
	var calls atomic.Int32
	e.RegisterHandler(pattern, hook.NoTopic(func(_ []any, _ map[string]any) error {
		calls.Add(1)
		return nil
	}), false)

	require.NoError(t, e.Put(mustParse(t, "Market.Data.AAPL"), nil, true))
	require.NoError(t, e.Put(mustParse(t, "Market.Data.A"), nil, true))

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBackpressureNinthPublishNonBlocking(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	// engine left unstarted: nothing drains the queue, so it fills.

	tp := mustParse(t, "Saturate")
	for i := 0; i < 8; i++ {
		require.NoError(t, e.Put(tp, nil, false))
	}
	err := e.Put(tp, nil, false)
	assert.True(t, errors.Is(err, eerr.ErrQueueFull))
}

func TestSecondAlignedTimer(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	require.NoError(t, e.Start())
	defer e.Stop()

	secondTopic, err := e.Timers().GetTimer(time.Second, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	e.RegisterHandler(secondTopic, hook.NoTopic(func(_ []any, kwargs map[string]any) error {
		calls.Add(1)
		return nil
	}), false)

	time.Sleep(3500 * time.Millisecond)
	got := calls.Load()
	assert.GreaterOrEqual(t, got, int32(3))
	assert.LessOrEqual(t, got, int32(4))
}

func TestLifecycleTransitions(t *testing.T) {
	e := engine.New()
	assert.Equal(t, engine.StateConstructed, e.State())

	require.Error(t, e.Stop())
	require.NoError(t, engine.New().Clear())

	require.NoError(t, e.Start())
	assert.Equal(t, engine.StateActive, e.State())
	require.Error(t, e.Start())
	require.Error(t, e.Clear())

	require.NoError(t, e.Stop())
	assert.Equal(t, engine.StateInactive, e.State())
	require.Error(t, e.Stop())

	require.NoError(t, e.Clear())
	assert.Equal(t, engine.StateCleared, e.State())

	require.Error(t, e.Start())
	assert.Equal(t, engine.StateCleared, e.State())
	require.Error(t, e.Stop())
}

func TestRestartAfterStop(t *testing.T) {
	e := engine.New(engine.WithCapacity(4))
	require.NoError(t, e.Start())

	tp := mustParse(t, "Restart.Probe")
	var calls atomic.Int32
	e.RegisterHandler(tp, hook.NoTopic(func(_ []any, _ map[string]any) error {
		calls.Add(1)
		return nil
	}), false)

	require.NoError(t, e.Put(tp, nil, true))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, e.Stop())
	require.NoError(t, e.Start())
	defer e.Stop()

	require.NoError(t, e.Put(tp, nil, true))
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestUnregisterLastHandlerDropsHook(t *testing.T) {
	e := engine.New(engine.WithCapacity(4))
	require.NoError(t, e.Start())
	defer e.Stop()

	tp := mustParse(t, "Unsub.Probe")
	var calls atomic.Int32
	id := e.RegisterHandler(tp, hook.NoTopic(func(_ []any, _ map[string]any) error {
		calls.Add(1)
		return nil
	}), false)

	require.NoError(t, e.Put(tp, nil, true))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, e.UnregisterHandler(tp, id))
	_, err := e.UnregisterHook(tp)
	assert.True(t, errors.Is(err, eerr.ErrNotFound))
}

func TestRegisterHookAlreadyRegistered(t *testing.T) {
	e := engine.New(engine.WithCapacity(4))
	tp := mustParse(t, "Dup.Probe")
	h := hook.New(tp, hook.Options{})
	require.NoError(t, e.RegisterHook(h))
	err := e.RegisterHook(hook.New(tp, hook.Options{}))
	assert.True(t, errors.Is(err, eerr.ErrAlreadyRegistered))
}

func TestPublishesBeyondCapacityAllDispatched(t *testing.T) {
	e := engine.New(engine.WithCapacity(8))
	require.NoError(t, e.Start())
	defer e.Stop()

	tp := mustParse(t, "Pool.Probe")
	var wg sync.WaitGroup
	wg.Add(20)
	e.RegisterHandler(tp, hook.NoTopic(func(_ []any, _ map[string]any) error {
		wg.Done()
		return nil
	}), false)

	for i := 0; i < 20; i++ {
		require.NoError(t, e.Put(tp, nil, true, i))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not all 20 publishes were dispatched")
	}
}
