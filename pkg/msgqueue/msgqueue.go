// Package msgqueue implements MsgQueue: a bounded ring buffer of
// *payload.Payload with blocking, non-blocking, and hybrid
// spin-then-block operations, guarding FIFO order across producers.
package msgqueue

import (
	"sync"
	"time"

	"github.com/twmb/eventengine/internal/spin"
	"github.com/twmb/eventengine/pkg/eerr"
	"github.com/twmb/eventengine/pkg/payload"
)

// MsgQueue is a bounded, thread-safe ring buffer of payload pointers.
type MsgQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	buf        []*payload.Payload
	head, tail int
	count      int

	active bool // false once Shutdown is called; unblocks waiters
}

// New returns a queue that holds at most capacity payloads.
func New(capacity int) *MsgQueue {
	if capacity <= 0 {
		capacity = 1
	}
	q := &MsgQueue{
		buf:    make([]*payload.Payload, capacity),
		active: true,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Cap returns the queue's fixed capacity.
func (q *MsgQueue) Cap() int { return len(q.buf) }

// Len returns the number of payloads currently enqueued.
func (q *MsgQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *MsgQueue) pushLocked(p *payload.Payload) {
	q.buf[q.tail] = p
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	q.notEmpty.Signal()
}

func (q *MsgQueue) popLocked() *payload.Payload {
	p := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	q.notFull.Signal()
	return p
}

// Put enqueues p without blocking, failing with eerr.ErrQueueFull if
// the queue is at capacity.
func (q *MsgQueue) Put(p *payload.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.buf) {
		return eerr.ErrQueueFull
	}
	q.pushLocked(p)
	return nil
}

// Get dequeues a payload without blocking, failing with
// eerr.ErrQueueEmpty if the queue has nothing ready.
func (q *MsgQueue) Get() (*payload.Payload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil, eerr.ErrQueueEmpty
	}
	return q.popLocked(), nil
}

// PutAwait blocks until there is room for p, or the queue is shut down
// (in which case it returns eerr.ErrQueueFull).
func (q *MsgQueue) PutAwait(p *payload.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == len(q.buf) && q.active {
		q.notFull.Wait()
	}
	if !q.active {
		return eerr.ErrQueueFull
	}
	q.pushLocked(p)
	return nil
}

// GetAwait blocks until a payload is available, or the queue is shut
// down and drained (in which case it returns eerr.ErrQueueEmpty).
func (q *MsgQueue) GetAwait() (*payload.Payload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.count == 0 && q.active {
		q.notEmpty.Wait()
	}
	if q.count == 0 {
		return nil, eerr.ErrQueueEmpty
	}
	return q.popLocked(), nil
}

// PutHybrid spins non-blocking attempts for up to spinIters iterations
// (spin <= 0 uses the tuned default from internal/spin), then falls
// back to a timed wait. timeout == 0 waits indefinitely once spinning
// is exhausted; timeout < 0 behaves as a pure non-blocking Put.
func (q *MsgQueue) PutHybrid(p *payload.Payload, spinIters int, timeout time.Duration) error {
	if timeout < 0 {
		return q.Put(p)
	}
	if spinIters <= 0 {
		spinIters = int(spin.DefaultIterations)
	}
	for i := 0; i < spinIters; i++ {
		if err := q.Put(p); err == nil {
			return nil
		}
	}
	return q.putTimed(p, timeout)
}

func (q *MsgQueue) putTimed(p *payload.Payload, timeout time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if timeout == 0 {
		for q.count == len(q.buf) && q.active {
			q.notFull.Wait()
		}
		if !q.active {
			return eerr.ErrQueueFull
		}
		q.pushLocked(p)
		return nil
	}
	return q.waitWithDeadline(timeout, func() bool { return q.count < len(q.buf) }, q.notFull, func() { q.pushLocked(p) }, eerr.ErrQueueFull)
}

// GetHybrid is the consumer-side counterpart of PutHybrid.
func (q *MsgQueue) GetHybrid(spinIters int, timeout time.Duration) (*payload.Payload, error) {
	if timeout < 0 {
		return q.Get()
	}
	if spinIters <= 0 {
		spinIters = int(spin.DefaultIterations)
	}
	for i := 0; i < spinIters; i++ {
		if p, err := q.Get(); err == nil {
			return p, nil
		}
	}
	return q.getTimed(timeout)
}

func (q *MsgQueue) getTimed(timeout time.Duration) (*payload.Payload, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if timeout == 0 {
		for q.count == 0 && q.active {
			q.notEmpty.Wait()
		}
		if q.count == 0 {
			return nil, eerr.ErrQueueEmpty
		}
		return q.popLocked(), nil
	}
	var out *payload.Payload
	err := q.waitWithDeadline(timeout, func() bool { return q.count > 0 }, q.notEmpty, func() { out = q.popLocked() }, eerr.ErrQueueEmpty)
	return out, err
}

// waitWithDeadline waits on cond until ready() is true, the deadline
// elapses, or the queue is shut down; it must be called with q.mu
// held. A background goroutine times the wait out by broadcasting the
// condvar once the deadline passes, since sync.Cond has no native
// timeout.
func (q *MsgQueue) waitWithDeadline(timeout time.Duration, ready func() bool, cond *sync.Cond, onReady func(), failErr error) error {
	deadline := time.Now().Add(timeout)
	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		timedOut = true
		q.mu.Unlock()
		cond.Broadcast()
	})
	defer timer.Stop()

	for !ready() && q.active && !timedOut && time.Now().Before(deadline) {
		cond.Wait()
	}
	if ready() && q.active {
		onReady()
		return nil
	}
	return failErr
}

// Shutdown marks the queue inactive and wakes every blocked producer
// and consumer; GetAwait/GetHybrid continue returning already-queued
// payloads until the queue drains, matching engine shutdown draining
// any already-dequeued message before the dispatcher exits.
func (q *MsgQueue) Shutdown() {
	q.mu.Lock()
	q.active = false
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Reactivate clears the shutdown flag, used when an Engine is
// restarted after Stop().
func (q *MsgQueue) Reactivate() {
	q.mu.Lock()
	q.active = true
	q.mu.Unlock()
}
