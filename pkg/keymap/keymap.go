// Package keymap implements KeyMap: an insertion-ordered, open-addressed
// hash map from variable-length byte keys to opaque values. It backs
// both the exact and generic topic indexes inside engine.Engine.
//
// KeyMap is not internally synchronized; callers serialize access
// themselves (engine.Engine holds its own mutex around every lookup
// and mutation of its two indexes).
package keymap

import "github.com/twmb/eventengine/pkg/ehash"

const maxLoadFactor = 0.75

type entry struct {
	key   []byte
	value any
	hash  uint64
	used  bool

	// prev/next thread entries in insertion order; -1 is the list
	// terminator.
	prev, next int
}

// KeyMap is an insertion-ordered map from []byte to any.
type KeyMap struct {
	buckets []int // index into entries, or -1 if empty; len is a power of two
	entries []entry
	free    []int // freed entry slots, reused before appending
	size    int

	head, tail int // -1 when empty
}

// New returns an empty KeyMap with capacityHint rounded up to a power
// of two (at least 8) buckets. It rehashes once an insert would take
// the entry count above 0.75 of the bucket count.
func New(capacityHint int) *KeyMap {
	cap := nextPow2(capacityHint)
	if cap < 8 {
		cap = 8
	}
	m := &KeyMap{
		buckets: make([]int, cap),
		head:    -1,
		tail:    -1,
	}
	for i := range m.buckets {
		m.buckets[i] = -1
	}
	return m
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Len returns the number of entries currently stored.
func (m *KeyMap) Len() int { return m.size }

func (m *KeyMap) mask() uint64 { return uint64(len(m.buckets) - 1) }

// find returns the entry index for key, or -1 if absent, along with
// the bucket slot it belongs in (for Set's insertion path).
func (m *KeyMap) find(key []byte, hash uint64) (entryIdx int, bucket int) {
	n := len(m.buckets)
	i := int(hash & m.mask())
	for probe := 0; probe < n; probe++ {
		b := m.buckets[i]
		if b == -1 {
			return -1, i
		}
		e := &m.entries[b]
		if e.used && e.hash == hash && string(e.key) == string(key) {
			return b, i
		}
		i = (i + 1) & int(m.mask())
	}
	return -1, -1
}

// Get returns the value stored under key, if any.
func (m *KeyMap) Get(key []byte) (any, bool) {
	hash := ehash.Sum64(key)
	idx, _ := m.find(key, hash)
	if idx == -1 {
		return nil, false
	}
	return m.entries[idx].value, true
}

// Set inserts or replaces the value stored under key, returning the
// previous value (if replaced).
func (m *KeyMap) Set(key []byte, value any) (prev any, replaced bool) {
	hash := ehash.Sum64(key)
	idx, bucket := m.find(key, hash)
	if idx != -1 {
		prev = m.entries[idx].value
		m.entries[idx].value = value
		return prev, true
	}

	if float64(m.size+1) > maxLoadFactor*float64(len(m.buckets)) {
		m.rehash(len(m.buckets) * 2)
		_, bucket = m.find(key, hash)
	}

	keyCopy := append([]byte(nil), key...)
	var ei int
	if n := len(m.free); n > 0 {
		ei = m.free[n-1]
		m.free = m.free[:n-1]
		m.entries[ei] = entry{key: keyCopy, value: value, hash: hash, used: true, prev: -1, next: -1}
	} else {
		ei = len(m.entries)
		m.entries = append(m.entries, entry{key: keyCopy, value: value, hash: hash, used: true, prev: -1, next: -1})
	}
	m.buckets[bucket] = ei
	m.linkTail(ei)
	m.size++
	return nil, false
}

func (m *KeyMap) linkTail(ei int) {
	e := &m.entries[ei]
	e.prev = m.tail
	e.next = -1
	if m.tail != -1 {
		m.entries[m.tail].next = ei
	} else {
		m.head = ei
	}
	m.tail = ei
}

func (m *KeyMap) unlink(ei int) {
	e := &m.entries[ei]
	if e.prev != -1 {
		m.entries[e.prev].next = e.next
	} else {
		m.head = e.next
	}
	if e.next != -1 {
		m.entries[e.next].prev = e.prev
	} else {
		m.tail = e.prev
	}
}

// Pop removes key, returning its value if present.
func (m *KeyMap) Pop(key []byte) (any, bool) {
	hash := ehash.Sum64(key)
	idx, bucket := m.find(key, hash)
	if idx == -1 {
		return nil, false
	}
	v := m.entries[idx].value
	m.unlink(idx)
	m.entries[idx] = entry{used: false}
	m.free = append(m.free, idx)

	// Close the probe chain: re-insert every subsequent entry in this
	// bucket's probe run so lookups for them still terminate correctly.
	m.buckets[bucket] = -1
	i := (bucket + 1) & int(m.mask())
	for m.buckets[i] != -1 {
		reinsert := m.buckets[i]
		m.buckets[i] = -1
		m.reinsertBucket(reinsert)
		i = (i + 1) & int(m.mask())
	}
	m.size--
	return v, true
}

func (m *KeyMap) reinsertBucket(ei int) {
	e := &m.entries[ei]
	i := int(e.hash & m.mask())
	for m.buckets[i] != -1 {
		i = (i + 1) & int(m.mask())
	}
	m.buckets[i] = ei
}

func (m *KeyMap) rehash(newCap int) {
	old := m.entries
	m.buckets = make([]int, newCap)
	for i := range m.buckets {
		m.buckets[i] = -1
	}
	m.entries = make([]entry, 0, newCap)
	m.free = nil
	oldHead := m.head
	m.head, m.tail = -1, -1
	m.size = 0
	for ei := oldHead; ei != -1; ei = old[ei].next {
		oe := old[ei]
		if !oe.used {
			continue
		}
		m.Set(oe.key, oe.value)
	}
}

// Clear drops every entry, keeping the current bucket capacity.
func (m *KeyMap) Clear() {
	for i := range m.buckets {
		m.buckets[i] = -1
	}
	m.entries = m.entries[:0]
	m.free = nil
	m.size = 0
	m.head, m.tail = -1, -1
}

// Iterate calls fn for every entry in insertion order, stopping early
// if fn returns false.
func (m *KeyMap) Iterate(fn func(key []byte, value any) bool) {
	for ei := m.head; ei != -1; ei = m.entries[ei].next {
		e := &m.entries[ei]
		if !fn(e.key, e.value) {
			return
		}
	}
}
