package hook

import (
	"sync"
	"time"
)

// Stats tracks per-handler invocation counters.
type Stats struct {
	Calls      uint64
	TotalTimeS float64
}

// HookEx extends Hook with per-handler timing, read via Stats. The
// stats map is guarded by its own mutex so Invoke's hot path never
// contends with the shared Hook handler-list mutation discipline
// (spec §5: handler lists are mutated only offline, but stats are
// read/written on every dispatch).
type HookEx struct {
	*Hook

	statsMu sync.Mutex
	stats   map[ID]*Stats
}

// NewEx wraps h, keeping its topic, options and handlers, with an
// empty stats map.
func NewEx(h *Hook) *HookEx {
	return &HookEx{Hook: h, stats: make(map[ID]*Stats)}
}

// AddHandler mirrors Hook.AddHandler, additionally registering a zero
// Stats entry for the new (or deduplicated) id.
func (h *HookEx) AddHandler(handler Handler, deduplicate bool) ID {
	id := h.Hook.AddHandler(handler, deduplicate)
	h.statsMu.Lock()
	if _, ok := h.stats[id]; !ok {
		h.stats[id] = &Stats{}
	}
	h.statsMu.Unlock()
	return id
}

// RemoveHandler mirrors Hook.RemoveHandler, dropping the id's stats entry.
func (h *HookEx) RemoveHandler(id ID) bool {
	removed := h.Hook.RemoveHandler(id)
	if removed {
		h.statsMu.Lock()
		delete(h.stats, id)
		h.statsMu.Unlock()
	}
	return removed
}

// Clear mirrors Hook.Clear, dropping all stats.
func (h *HookEx) Clear() {
	h.Hook.Clear()
	h.statsMu.Lock()
	h.stats = make(map[ID]*Stats)
	h.statsMu.Unlock()
}

// Stats returns a snapshot of the counters for id, if any.
func (h *HookEx) Stats(id ID) (Stats, bool) {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()
	s, ok := h.stats[id]
	if !ok {
		return Stats{}, false
	}
	return *s, true
}

// Invoke times each handler call around the embedded Hook's
// invocation, updating Stats after the call (and any fault logging)
// returns, so a failing handler's call still counts.
func (h *HookEx) Invoke(args []any, kwargs map[string]any) {
	for _, bh := range h.Hook.noTopic {
		h.timed(bh.id, func() { h.Hook.invokeOne(bh, args, kwargs) })
	}
	withKwargs := withTopicKey(kwargs, h.Hook.Topic)
	for _, bh := range h.Hook.withTopic {
		h.timed(bh.id, func() { h.Hook.invokeOneWithTopic(bh, args, withKwargs, kwargs) })
	}
}

func (h *HookEx) timed(id ID, call func()) {
	start := time.Now()
	call()
	elapsed := time.Since(start).Seconds()

	h.statsMu.Lock()
	s, ok := h.stats[id]
	if !ok {
		s = &Stats{}
		h.stats[id] = s
	}
	s.Calls++
	s.TotalTimeS += elapsed
	h.statsMu.Unlock()
}
