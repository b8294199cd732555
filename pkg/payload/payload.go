// Package payload implements the fixed-size Payload slab allocator
// (PayloadPool) that backs every message moving through the engine's
// queue.
package payload

import (
	"sync"

	"github.com/twmb/eventengine/pkg/topic"
)

// Payload is the on-queue message record: a borrowed topic reference,
// the positional/keyword arguments (ownership transferred to the
// payload at publish time), and a monotonic sequence id.
type Payload struct {
	Topic  *topic.Topic
	Args   []any
	Kwargs map[string]any
	SeqID  uint64

	slot int // index into the pool's slab, or -1 for a heap overflow payload
}

// poolBacked reports whether this payload came from the pool's slab
// (true) or was allocated from the heap on overflow (false).
func (p *Payload) poolBacked() bool { return p.slot >= 0 }

// PayloadPool is a fixed-size slab of Payload blocks with a free list.
// Request falls back to a heap allocation when the slab is exhausted
// or the pool has been deactivated, so a publish never silently drops
// a message for want of a pool slot.
type PayloadPool struct {
	mu     sync.Mutex
	slab   []Payload
	free   []int // indices into slab currently unused
	active bool
}

// NewPool allocates a slab of n Payload blocks.
func NewPool(n int) *PayloadPool {
	if n <= 0 {
		n = 1
	}
	p := &PayloadPool{
		slab:   make([]Payload, n),
		free:   make([]int, n),
		active: true,
	}
	for i := range p.slab {
		p.slab[i].slot = i
		p.free[i] = i
	}
	return p
}

// Request returns a zeroed Payload, reusing a pool slot if one is
// free and the pool is active, or allocating from the heap otherwise.
func (p *PayloadPool) Request() *Payload {
	p.mu.Lock()
	if p.active && len(p.free) > 0 {
		i := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.mu.Unlock()
		p.slab[i] = Payload{slot: i}
		return &p.slab[i]
	}
	p.mu.Unlock()
	return &Payload{slot: -1}
}

// Recycle returns a payload to the pool. Heap-overflow payloads are
// simply dropped for the garbage collector to reclaim.
func (p *PayloadPool) Recycle(pl *Payload) {
	if pl == nil || !pl.poolBacked() {
		return
	}
	pl.Topic = nil
	pl.Args = nil
	pl.Kwargs = nil
	pl.SeqID = 0

	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = append(p.free, pl.slot)
}

// SetActive enables or disables the slab fast path; disabling forces
// every subsequent Request to overflow to the heap, used to drain the
// pool cleanly during Engine shutdown.
func (p *PayloadPool) SetActive(active bool) {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
}

// InUse returns how many slab slots are currently checked out, for
// tests and diagnostics (spec.md §8 "no-leak" property).
func (p *PayloadPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slab) - len(p.free)
}

// Cap returns the slab's fixed size.
func (p *PayloadPool) Cap() int { return len(p.slab) }
