package payload_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twmb/eventengine/pkg/payload"
)

func TestRequestReusesFreedSlots(t *testing.T) {
	pool := payload.NewPool(2)
	assert.Equal(t, 2, pool.Cap())

	a := pool.Request()
	b := pool.Request()
	assert.Equal(t, 2, pool.InUse())

	pool.Recycle(a)
	assert.Equal(t, 1, pool.InUse())

	c := pool.Request()
	assert.Equal(t, 2, pool.InUse())
	_ = b
	_ = c
}

func TestRequestOverflowsToHeap(t *testing.T) {
	pool := payload.NewPool(1)
	a := pool.Request()
	b := pool.Request() // pool exhausted, falls back to heap
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, 1, pool.InUse())

	// heap overflow payloads are not pool-backed; recycling one must not
	// corrupt the free list or double-count capacity.
	pool.Recycle(b)
	assert.Equal(t, 1, pool.InUse())
}

func TestRecycleClearsFields(t *testing.T) {
	pool := payload.NewPool(1)
	p := pool.Request()
	p.Args = []any{1, 2, 3}
	p.Kwargs = map[string]any{"a": 1}
	p.SeqID = 42

	pool.Recycle(p)
	assert.Nil(t, p.Topic)
	assert.Nil(t, p.Args)
	assert.Nil(t, p.Kwargs)
	assert.Equal(t, uint64(0), p.SeqID)
}

func TestSetActiveForcesHeapOverflow(t *testing.T) {
	pool := payload.NewPool(2)
	pool.SetActive(false)
	p := pool.Request()
	require.NotNil(t, p)
	assert.Equal(t, 0, pool.InUse())
}
