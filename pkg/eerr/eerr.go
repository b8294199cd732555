// Package eerr defines the sentinel error values surfaced across the
// event engine. Callers should compare with errors.Is, not string
// matching.
package eerr

import (
	"errors"
	"strconv"
)

var (
	// ErrQueueFull is returned by a non-blocking publish into a full queue.
	ErrQueueFull = errors.New("eventengine: queue full")
	// ErrQueueEmpty is returned by a non-blocking get on an empty queue.
	ErrQueueEmpty = errors.New("eventengine: queue empty")
	// ErrInvalidTopic is returned when publishing with a non-exact topic.
	ErrInvalidTopic = errors.New("eventengine: topic is not exact")
	// ErrNotFound is returned by unregister operations on an absent binding.
	ErrNotFound = errors.New("eventengine: not found")
	// ErrAlreadyRegistered is returned by RegisterHook when the topic key
	// is already bound to another hook.
	ErrAlreadyRegistered = errors.New("eventengine: already registered")
	// ErrLifecycle is returned by lifecycle transitions attempted from an
	// invalid state (e.g. Stop on an inactive engine).
	ErrLifecycle = errors.New("eventengine: invalid lifecycle transition")
	// ErrAllocation is returned when the payload pool and its heap
	// fallback both fail to produce a payload.
	ErrAllocation = errors.New("eventengine: allocation failed")
	// ErrUnexpectedTopicArg tags a with-topic handler failure that looks
	// like a "topic" keyword-argument arity mismatch; engine retries the
	// call without the topic key only when Hook.RetryOnUnexpectedTopic
	// is set.
	ErrUnexpectedTopicArg = errors.New("eventengine: unexpected keyword argument 'topic'")
)

// ParseError reports a malformed topic string, with the byte offset at
// which parsing failed.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return "eventengine: parse error at " + strconv.Itoa(e.Pos) + " in " + strconv.Quote(e.Input) + ": " + e.Msg
}
