// Package hook implements Hook and HookEx: the ordered list of
// handlers bound to one registered topic, with exception-isolated
// invocation and the two calling conventions spec.md §4.5 describes
// (no-topic, with-topic).
package hook

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"

	"github.com/twmb/eventengine/pkg/eerr"
	"github.com/twmb/eventengine/pkg/elog"
	"github.com/twmb/eventengine/pkg/topic"
)

// Handler is the sealed interface satisfied by NoTopicHandler and
// WithTopicHandler. Classification happens at registration time
// (AddHandler), via which of the two constructors the caller used,
// rather than at dispatch time by introspecting a callable's formal
// parameters as the source language would.
type Handler interface {
	isHandler()
	call(t *topic.Topic, args []any, kwargs map[string]any) error
}

// NoTopicFunc receives only the message's positional/keyword
// arguments.
type NoTopicFunc func(args []any, kwargs map[string]any) error

// NoTopic wraps fn as a no-topic Handler.
func NoTopic(fn NoTopicFunc) Handler { return noTopicHandler{fn} }

type noTopicHandler struct{ fn NoTopicFunc }

func (noTopicHandler) isHandler() {}
func (h noTopicHandler) call(_ *topic.Topic, args []any, kwargs map[string]any) error {
	return h.fn(args, kwargs)
}

// WithTopicFunc additionally receives the payload's topic; kwargs is
// guaranteed to carry a "topic" key bound to the same value before
// this is called (see Hook.Invoke).
type WithTopicFunc func(t *topic.Topic, args []any, kwargs map[string]any) error

// WithTopic wraps fn as a with-topic Handler.
func WithTopic(fn WithTopicFunc) Handler { return withTopicHandler{fn} }

type withTopicHandler struct{ fn WithTopicFunc }

func (withTopicHandler) isHandler() {}
func (h withTopicHandler) call(t *topic.Topic, args []any, kwargs map[string]any) error {
	return h.fn(t, args, kwargs)
}

// ID identifies one registered handler, minted at AddHandler time.
// Go func values are not comparable or usable as map keys, so a
// synthetic ID stands in for the "is this handler already registered"
// identity check and for keying HookEx's per-handler stats.
type ID = uuid.UUID

type boundHandler struct {
	id ID
	h  Handler
}

// Options configures a Hook at construction time.
type Options struct {
	Logger                 elog.ExternalLogger
	RetryOnUnexpectedTopic bool
}

// Hook binds one topic to its ordered no-topic and with-topic handler
// lists.
type Hook struct {
	Topic *topic.Topic

	noTopic   []boundHandler
	withTopic []boundHandler

	logger                 elog.ExternalLogger
	retryOnUnexpectedTopic bool
}

// New creates an empty Hook bound to t.
func New(t *topic.Topic, opts Options) *Hook {
	logger := opts.Logger
	if logger == nil {
		logger = elog.Nop{}
	}
	return &Hook{
		Topic:                  t,
		logger:                 logger,
		retryOnUnexpectedTopic: opts.RetryOnUnexpectedTopic,
	}
}

// Len returns the total number of registered handlers, both groups.
func (h *Hook) Len() int { return len(h.noTopic) + len(h.withTopic) }

// GetTopic returns the topic this hook is bound to. Named GetTopic
// rather than Topic to avoid colliding with the exported Topic field.
func (h *Hook) GetTopic() *topic.Topic { return h.Topic }

// AddHandler appends handler to the group matching its kind. If
// deduplicate is true and an equal handler (by underlying func
// identity) is already present, the call is a no-op and the existing
// ID is returned; otherwise duplicates are permitted and will each
// fire once per dispatch.
func (h *Hook) AddHandler(handler Handler, deduplicate bool) ID {
	list := h.listFor(handler)
	if deduplicate {
		if existing, ok := findEqual(*list, handler); ok {
			h.logger.Debug("duplicate handler registration skipped", "topic", h.Topic.Literal())
			return existing
		}
	}
	id := uuid.New()
	*list = append(*list, boundHandler{id: id, h: handler})
	return id
}

func (h *Hook) listFor(handler Handler) *[]boundHandler {
	switch handler.(type) {
	case withTopicHandler:
		return &h.withTopic
	default:
		return &h.noTopic
	}
}

func findEqual(list []boundHandler, handler Handler) (ID, bool) {
	target := handlerPointer(handler)
	for _, bh := range list {
		if handlerPointer(bh.h) == target {
			return bh.id, true
		}
	}
	return ID{}, false
}

// RemoveHandler removes the first occurrence of id from either list.
// Removing an absent id is a no-op that reports false.
func (h *Hook) RemoveHandler(id ID) bool {
	if removeByID(&h.noTopic, id) {
		return true
	}
	return removeByID(&h.withTopic, id)
}

func removeByID(list *[]boundHandler, id ID) bool {
	for i, bh := range *list {
		if bh.id == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every registered handler.
func (h *Hook) Clear() {
	h.noTopic = nil
	h.withTopic = nil
}

// Invoke runs every no-topic handler in insertion order, then every
// with-topic handler in insertion order, isolating each call: a panic
// or returned error is recovered, formatted, and logged, and dispatch
// continues with the next handler (spec §4.5, §8 property 9).
func (h *Hook) Invoke(args []any, kwargs map[string]any) {
	for _, bh := range h.noTopic {
		h.invokeOne(bh, args, kwargs)
	}
	withKwargs := withTopicKey(kwargs, h.Topic)
	for _, bh := range h.withTopic {
		h.invokeOneWithTopic(bh, args, withKwargs, kwargs)
	}
}

func withTopicKey(kwargs map[string]any, t *topic.Topic) map[string]any {
	out := make(map[string]any, len(kwargs)+1)
	for k, v := range kwargs {
		out[k] = v
	}
	out["topic"] = t
	return out
}

func (h *Hook) invokeOne(bh boundHandler, args []any, kwargs map[string]any) {
	defer h.recoverFault(bh.id, args, kwargs)
	if err := bh.h.call(h.Topic, args, kwargs); err != nil {
		h.logFault(bh.id, err, args, kwargs)
	}
}

func (h *Hook) invokeOneWithTopic(bh boundHandler, args []any, withKwargs, plainKwargs map[string]any) {
	defer h.recoverFault(bh.id, args, withKwargs)
	err := bh.h.call(h.Topic, args, withKwargs)
	if err == nil {
		return
	}
	if h.retryOnUnexpectedTopic && isUnexpectedTopicArg(err) {
		// Footgun, documented in spec.md §9: if the handler's own body
		// returns a matching error for an unrelated reason, this retry
		// makes it run twice.
		err = bh.h.call(h.Topic, args, plainKwargs)
		if err == nil {
			return
		}
	}
	h.logFault(bh.id, err, args, withKwargs)
}

func isUnexpectedTopicArg(err error) bool {
	return err != nil && errors.Is(err, eerr.ErrUnexpectedTopicArg)
}

func (h *Hook) recoverFault(id ID, args []any, kwargs map[string]any) {
	if r := recover(); r != nil {
		h.logger.Error("handler panicked",
			"topic", h.Topic.Literal(),
			"handler", id.String(),
			"panic", fmt.Sprint(r),
			"args", spew.Sdump(args),
			"stack", string(debug.Stack()),
		)
	}
}

func (h *Hook) logFault(id ID, err error, args []any, kwargs map[string]any) {
	h.logger.Error("handler returned error",
		"topic", h.Topic.Literal(),
		"handler", id.String(),
		"error", err.Error(),
		"args", spew.Sdump(args),
		"kwargs", spew.Sdump(kwargs),
	)
}
