package engine

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/twmb/eventengine/pkg/topic"
)

const (
	secondTimerTopic = "EventEngine.Internal.Timer.Second"
	minuteTimerTopic = "EventEngine.Internal.Timer.Minute"
)

// EngineTimers drives the background timer threads described in spec
// §4.7: one goroutine per distinct interval, publishing to a
// well-known topic on every tick.
type EngineTimers struct {
	e *Engine

	mu      sync.Mutex
	active  []*timerEntry // kept sorted by interval for deterministic ListTimers order
	done    chan struct{}
	running sync.WaitGroup
}

type timerEntry struct {
	interval time.Duration
	topic    *topic.Topic
}

func newTimers(e *Engine) *EngineTimers {
	return &EngineTimers{e: e, done: make(chan struct{})}
}

// GetTimer returns the well-known topic a timer for interval publishes
// to, starting the backing goroutine on first call for that interval.
// activateAt, when non-nil, is the first fire time for intervals other
// than 1s/60s (which always align to the second/minute boundary); a
// second call for an already-running interval returns the existing
// topic and logs that activateAt was ignored.
func (t *EngineTimers) GetTimer(interval time.Duration, activateAt *time.Time) (*topic.Topic, error) {
	t.mu.Lock()
	for _, e := range t.active {
		if e.interval == interval {
			t.mu.Unlock()
			t.e.opts.Logger.Debug("timer already running, activateAt ignored", "interval", interval.String())
			return e.topic, nil
		}
	}

	tp, err := timerTopic(interval)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}
	entry := &timerEntry{interval: interval, topic: tp}
	t.active = append(t.active, entry)
	sort.Slice(t.active, func(i, j int) bool { return t.active[i].interval < t.active[j].interval })
	done := t.done
	t.mu.Unlock()

	t.running.Add(1)
	go t.run(entry, activateAt, done)
	return tp, nil
}

func timerTopic(interval time.Duration) (*topic.Topic, error) {
	switch interval {
	case time.Second:
		return topic.Parse(secondTimerTopic)
	case time.Minute:
		return topic.Parse(minuteTimerTopic)
	default:
		return topic.Join("EventEngine", "Internal", "Timer", strconv.FormatFloat(interval.Seconds(), 'g', -1, 64))
	}
}

func (t *EngineTimers) run(entry *timerEntry, activateAt *time.Time, done <-chan struct{}) {
	defer t.running.Done()

	first := t.firstFire(entry.interval, activateAt)
	timer := time.NewTimer(time.Until(first))
	defer timer.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-timer.C:
			t.fire(entry, now)
			timer.Reset(time.Until(t.nextFire(entry.interval, now)))
		}
	}
}

func (t *EngineTimers) firstFire(interval time.Duration, activateAt *time.Time) time.Time {
	switch interval {
	case time.Second, time.Minute:
		return t.nextFire(interval, time.Now())
	}
	if activateAt != nil {
		return *activateAt
	}
	return time.Now()
}

// nextFire aligns 1s/60s intervals to the start of the next
// second/minute (floor(now, period) + period); other intervals simply
// fire `interval` after `from`.
func (t *EngineTimers) nextFire(interval time.Duration, from time.Time) time.Time {
	switch interval {
	case time.Second:
		return from.Truncate(time.Second).Add(time.Second)
	case time.Minute:
		return from.Truncate(time.Minute).Add(time.Minute)
	default:
		return from.Add(interval)
	}
}

func (t *EngineTimers) fire(entry *timerEntry, now time.Time) {
	kwargs := map[string]any{}
	switch entry.interval {
	case time.Second, time.Minute:
		kwargs["timestamp"] = now
	default:
		kwargs["interval"] = entry.interval.Seconds()
		kwargs["trigger_time"] = now
	}
	if err := t.e.Publish(entry.topic, nil, kwargs, false, 0); err != nil {
		t.e.opts.Logger.Warn("timer publish dropped", "topic", entry.topic.Literal(), "error", err.Error())
	}
}

// ListTimers returns the currently active intervals in ascending order.
func (t *EngineTimers) ListTimers() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Duration, len(t.active))
	for i, e := range t.active {
		out[i] = e.interval
	}
	return out
}

// Stop signals every timer goroutine to exit and waits for them to do so.
func (t *EngineTimers) Stop() {
	t.mu.Lock()
	select {
	case <-t.done:
		// already stopped
	default:
		close(t.done)
	}
	entries := t.active
	t.active = nil
	t.mu.Unlock()
	_ = entries
	t.running.Wait()
	t.done = make(chan struct{})
}
