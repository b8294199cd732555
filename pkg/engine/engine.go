// Package engine implements Engine: the dispatch core that ties
// together the message queue, payload pool, and the exact/generic
// topic indexes, plus EngineTimers for periodic publications.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/eventengine/pkg/eerr"
	"github.com/twmb/eventengine/pkg/elog"
	"github.com/twmb/eventengine/pkg/hook"
	"github.com/twmb/eventengine/pkg/keymap"
	"github.com/twmb/eventengine/pkg/msgqueue"
	"github.com/twmb/eventengine/pkg/payload"
	"github.com/twmb/eventengine/pkg/topic"
)

// DefaultCapacity is the queue depth used when Options.Capacity is unset.
const DefaultCapacity = 4095

// DefaultMaxSpin is the spin-iteration bound used when Options.MaxSpin is unset.
const DefaultMaxSpin = 65535

// hookLike is satisfied by both *hook.Hook and *hook.HookEx, letting
// Engine's indexes hold either without caring which.
type hookLike interface {
	GetTopic() *topic.Topic
	Invoke(args []any, kwargs map[string]any)
	Len() int
}

// Options configures an Engine at construction time.
type Options struct {
	Capacity uint32
	Logger   elog.ExternalLogger
	MaxSpin  uint32
	Timeout  time.Duration
}

// Option mutates Options; used with New.
type Option func(*Options)

// WithCapacity overrides the queue's bounded capacity.
func WithCapacity(n uint32) Option { return func(o *Options) { o.Capacity = n } }

// WithLogger overrides the engine's ExternalLogger.
func WithLogger(l elog.ExternalLogger) Option { return func(o *Options) { o.Logger = l } }

// WithMaxSpin overrides the default hybrid-queue spin bound.
func WithMaxSpin(n uint32) Option { return func(o *Options) { o.MaxSpin = n } }

// WithTimeout overrides the default blocking timeout used by Put and
// by the dispatcher's queue wait; Publish and Get take their own.
func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

// State is the engine's lifecycle position (spec §4.6).
type State int32

const (
	StateConstructed State = iota
	StateActive
	StateStopping
	StateInactive
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateInactive:
		return "inactive"
	case StateCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Engine is the dispatch core: a bounded queue feeding a background
// consumer that routes each payload to its matching exact-topic hook
// (O(1)) and walks the generic-topic index for wildcard matches.
type Engine struct {
	opts Options

	queue     *msgqueue.MsgQueue
	exact     *keymap.KeyMap
	generic   *keymap.KeyMap
	allocator *payload.PayloadPool

	seqID atomic.Uint64
	state atomic.Int32

	mu        sync.Mutex // guards the exact/generic indexes
	timers    *EngineTimers
	dispWG    sync.WaitGroup
	lastErr   atomic.Value // error
	stoppedCh chan struct{}
}

// New constructs an inactive Engine. Call Start to spawn the
// dispatcher goroutine.
func New(opts ...Option) *Engine {
	o := Options{
		Capacity: DefaultCapacity,
		MaxSpin:  DefaultMaxSpin,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if o.Logger == nil {
		o.Logger = elog.Nop{}
	}

	e := &Engine{
		opts:      o,
		queue:     msgqueue.New(int(o.Capacity)),
		exact:     keymap.New(64),
		generic:   keymap.New(16),
		allocator: payload.NewPool(int(o.Capacity) + 1),
	}
	e.timers = newTimers(e)
	e.state.Store(int32(StateConstructed))
	return e
}

// State returns the engine's current lifecycle position.
func (e *Engine) State() State { return State(e.state.Load()) }

// Logger returns the engine's configured ExternalLogger.
func (e *Engine) Logger() elog.ExternalLogger { return e.opts.Logger }

// Timers returns the engine's EngineTimers, for starting and listing
// periodic publications (spec §4.7).
func (e *Engine) Timers() *EngineTimers { return e.timers }

// errBox boxes an error so atomic.Value (which requires a single
// concrete type across Store calls) can hold varying error values.
type errBox struct{ err error }

// Err returns the last lifecycle error recorded, if any, for callers
// that prefer polling over checking every call's return value.
func (e *Engine) Err() error {
	if v := e.lastErr.Load(); v != nil {
		return v.(errBox).err
	}
	return nil
}

func (e *Engine) setErr(err error) {
	e.lastErr.Store(errBox{err: err})
}
