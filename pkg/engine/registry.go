package engine

import (
	"github.com/twmb/eventengine/pkg/eerr"
	"github.com/twmb/eventengine/pkg/hook"
	"github.com/twmb/eventengine/pkg/keymap"
	"github.com/twmb/eventengine/pkg/topic"
)

// mapFor returns the index a topic's hook belongs in: exact for
// IsExact topics, generic otherwise.
func (e *Engine) mapFor(t *topic.Topic) *keymap.KeyMap {
	if t.IsExact() {
		return e.exact
	}
	return e.generic
}

// RegisterHook places h in the exact or generic index, keyed by
// h.Topic's canonical key (hook.Hook.GetTopic()). It refuses with
// eerr.ErrAlreadyRegistered if another hook already occupies that key.
func (e *Engine) RegisterHook(h hookLike) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.mapFor(h.GetTopic())
	if _, exists := m.Get(h.GetTopic().Key()); exists {
		e.opts.Logger.Warn("hook already registered", "topic", h.GetTopic().Literal())
		return eerr.ErrAlreadyRegistered
	}
	m.Set(h.GetTopic().Key(), h)
	return nil
}

// UnregisterHook removes and returns the hook bound to t's key,
// failing with eerr.ErrNotFound if absent.
func (e *Engine) UnregisterHook(t *topic.Topic) (hookLike, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.mapFor(t)
	v, ok := m.Pop(t.Key())
	if !ok {
		return nil, eerr.ErrNotFound
	}
	return v.(hookLike), nil
}

// RegisterHandler creates a Hook on demand for t if none is registered
// yet, then adds handler to it, returning the handler's id.
func (e *Engine) RegisterHandler(t *topic.Topic, handler hook.Handler, deduplicate bool) hook.ID {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.mapFor(t)
	var h registrableHook
	if v, ok := m.Get(t.Key()); ok {
		h = v.(registrableHook)
	} else {
		newHook := hook.New(t, hook.Options{Logger: e.opts.Logger})
		h = newHook
		m.Set(t.Key(), hookLike(newHook))
	}
	return h.AddHandler(handler, deduplicate)
}

// registrableHook is satisfied by both *hook.Hook and *hook.HookEx,
// whose AddHandler signatures agree even though HookEx overrides it to
// also seed a stats entry.
type registrableHook interface {
	AddHandler(handler hook.Handler, deduplicate bool) hook.ID
}

// UnregisterHandler removes id from the hook bound to t. If the hook
// becomes empty, it is unregistered entirely. Fails with
// eerr.ErrNotFound if t has no hook or the hook does not know id —
// either case is a no-op.
func (e *Engine) UnregisterHandler(t *topic.Topic, id hook.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := e.mapFor(t)
	v, ok := m.Get(t.Key())
	if !ok {
		return eerr.ErrNotFound
	}
	h := v.(hookLike)
	removableHook, ok := h.(interface{ RemoveHandler(hook.ID) bool })
	if !ok || !removableHook.RemoveHandler(id) {
		return eerr.ErrNotFound
	}
	if h.Len() == 0 {
		m.Pop(t.Key())
	}
	return nil
}

// Topics returns every registered topic, exact index first, each in
// insertion order, then the generic index the same way.
func (e *Engine) Topics() []*topic.Topic {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []*topic.Topic
	e.exact.Iterate(func(_ []byte, v any) bool {
		out = append(out, v.(hookLike).GetTopic())
		return true
	})
	e.generic.Iterate(func(_ []byte, v any) bool {
		out = append(out, v.(hookLike).GetTopic())
		return true
	})
	return out
}

// Hooks returns every registered hook, exact index first.
func (e *Engine) Hooks() []hookLike {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []hookLike
	e.exact.Iterate(func(_ []byte, v any) bool {
		out = append(out, v.(hookLike))
		return true
	})
	e.generic.Iterate(func(_ []byte, v any) bool {
		out = append(out, v.(hookLike))
		return true
	})
	return out
}

// Item pairs a topic with its hook, as returned by Items.
type Item struct {
	Topic *topic.Topic
	Hook  hookLike
}

// Items returns every (topic, hook) pair, exact index first.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Item
	e.exact.Iterate(func(_ []byte, v any) bool {
		h := v.(hookLike)
		out = append(out, Item{Topic: h.GetTopic(), Hook: h})
		return true
	})
	e.generic.Iterate(func(_ []byte, v any) bool {
		h := v.(hookLike)
		out = append(out, Item{Topic: h.GetTopic(), Hook: h})
		return true
	})
	return out
}
