package engine

import (
	"time"

	"github.com/twmb/eventengine/pkg/eerr"
	"github.com/twmb/eventengine/pkg/payload"
	"github.com/twmb/eventengine/pkg/topic"
)

// Publish fills a Payload from the pool and enqueues it for dispatch.
// topic must be exact (IsExact); publishing a generic topic fails
// with eerr.ErrInvalidTopic. block selects PutAwait (true) vs a
// single non-blocking Put attempt (false); when block is true and
// timeout != 0, the hybrid spin-then-wait path is used with the
// engine's configured MaxSpin (a negative timeout there makes it a
// single non-blocking attempt).
func (e *Engine) Publish(t *topic.Topic, args []any, kwargs map[string]any, block bool, timeout time.Duration) error {
	if !t.IsExact() {
		return eerr.ErrInvalidTopic
	}

	p := e.allocator.Request()
	p.Topic = t
	p.Args = args
	p.Kwargs = kwargs
	p.SeqID = e.seqID.Add(1)

	var err error
	switch {
	case !block:
		err = e.queue.Put(p)
	case timeout != 0:
		err = e.queue.PutHybrid(p, int(e.opts.MaxSpin), timeout)
	default:
		err = e.queue.PutAwait(p)
	}
	if err != nil {
		e.allocator.Recycle(p)
		return err
	}
	return nil
}

// Put is publish's convenience form: variadic positional args plus a
// kwargs map, using the engine's configured default timeout.
func (e *Engine) Put(t *topic.Topic, kwargs map[string]any, block bool, args ...any) error {
	return e.Publish(t, args, kwargs, block, e.opts.Timeout)
}

// Get pops a payload directly off the queue, bypassing hook dispatch
// entirely — primarily for tests and pull-style consumers. block,
// maxSpin, and timeout mirror Publish's blocking controls; maxSpin<=0
// uses the engine's configured MaxSpin.
func (e *Engine) Get(block bool, maxSpin int, timeout time.Duration) (*payload.Payload, error) {
	if !block {
		return e.queue.Get()
	}
	if maxSpin <= 0 {
		maxSpin = int(e.opts.MaxSpin)
	}
	return e.queue.GetHybrid(maxSpin, timeout)
}

// dispatchLoop is the single background consumer: dequeue, route to
// every matching hook, recycle. It exits once the queue is shut down
// and fully drained.
func (e *Engine) dispatchLoop() {
	defer e.dispWG.Done()
	defer close(e.stoppedCh)

	for {
		p, err := e.queue.GetHybrid(int(e.opts.MaxSpin), e.opts.Timeout)
		if err != nil {
			if e.State() == StateActive {
				continue // idle timeout while running; keep waiting
			}
			return
		}
		e.route(p)
		e.allocator.Recycle(p)
	}
}

// route implements the dispatch algorithm of spec §4.6: O(1) exact
// lookup, then a walk of the generic index (skipped entirely when
// empty).
func (e *Engine) route(p *payload.Payload) {
	e.mu.Lock()
	var exactHook hookLike
	if v, ok := e.exact.Get(p.Topic.Key()); ok {
		exactHook = v.(hookLike)
	}
	genericEmpty := e.generic.Len() == 0
	var genericHooks []hookLike
	if !genericEmpty {
		e.generic.Iterate(func(_ []byte, v any) bool {
			genericHooks = append(genericHooks, v.(hookLike))
			return true
		})
	}
	e.mu.Unlock()

	if exactHook != nil {
		exactHook.Invoke(p.Args, p.Kwargs)
	}
	for _, h := range genericHooks {
		if h.GetTopic().Match(p.Topic).Matched {
			h.Invoke(p.Args, p.Kwargs)
		}
	}

	// args/kwargs ownership ends here (the spec's "drop-ref after last
	// consumer use"); Go's GC reclaims them once Recycle nils the
	// Payload's references, no manual refcounting needed.
}
