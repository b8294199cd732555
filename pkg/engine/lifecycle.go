package engine

import (
	"github.com/twmb/eventengine/pkg/eerr"
)

// Start transitions Constructed|Inactive → Active and spawns the
// background dispatcher goroutine. Starting an already-Active engine
// is a logged no-op that returns eerr.ErrLifecycle.
func (e *Engine) Start() error {
	cur := e.State()
	if cur != StateConstructed && cur != StateInactive {
		e.opts.Logger.Warn("start ignored: invalid state", "state", cur.String())
		e.setErr(eerr.ErrLifecycle)
		return eerr.ErrLifecycle
	}
	e.queue.Reactivate()
	e.allocator.SetActive(true)
	e.state.Store(int32(StateActive))
	e.stoppedCh = make(chan struct{})

	e.dispWG.Add(1)
	go e.dispatchLoop()

	e.opts.Logger.Info("engine started")
	return nil
}

// Stop transitions Active → Stopping → Inactive, signaling the queue
// to unblock and joining the dispatcher and all timer goroutines.
// Stopping a non-Active engine is a logged no-op that returns
// eerr.ErrLifecycle.
func (e *Engine) Stop() error {
	if !e.state.CompareAndSwap(int32(StateActive), int32(StateStopping)) {
		e.opts.Logger.Warn("stop ignored: invalid state", "state", e.State().String())
		e.setErr(eerr.ErrLifecycle)
		return eerr.ErrLifecycle
	}
	e.timers.Stop()
	e.queue.Shutdown()
	e.dispWG.Wait()
	e.allocator.SetActive(false)
	e.state.Store(int32(StateInactive))
	e.opts.Logger.Info("engine stopped")
	return nil
}

// Clear drops every registered hook and stops any still-running
// timers. It is only valid while the engine is not Active.
func (e *Engine) Clear() error {
	if e.State() == StateActive {
		e.opts.Logger.Warn("clear ignored: engine is active")
		e.setErr(eerr.ErrLifecycle)
		return eerr.ErrLifecycle
	}
	e.mu.Lock()
	e.exact.Clear()
	e.generic.Clear()
	e.mu.Unlock()
	e.timers.Stop()
	e.state.Store(int32(StateCleared))
	e.opts.Logger.Info("engine cleared")
	return nil
}

// Run invokes Start and blocks until the dispatcher goroutine it
// spawned exits (i.e. until Stop is called from another goroutine),
// for callers that want to dedicate their own goroutine to the
// engine's lifetime instead of treating Start as fire-and-forget.
func (e *Engine) Run() error {
	if err := e.Start(); err != nil {
		return err
	}
	<-e.stoppedCh
	return nil
}
