package keymap_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twmb/eventengine/pkg/keymap"
)

func TestSetGet(t *testing.T) {
	m := keymap.New(8)
	m.Set([]byte("a"), 1)
	m.Set([]byte("b"), 2)

	v, ok := m.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Get([]byte("missing"))
	assert.False(t, ok)
}

func TestSetReplace(t *testing.T) {
	m := keymap.New(8)
	m.Set([]byte("a"), 1)
	prev, replaced := m.Set([]byte("a"), 2)
	assert.True(t, replaced)
	assert.Equal(t, 1, prev)

	v, _ := m.Get([]byte("a"))
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, m.Len())
}

func TestPop(t *testing.T) {
	m := keymap.New(8)
	m.Set([]byte("a"), 1)
	m.Set([]byte("b"), 2)

	v, ok := m.Pop([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, m.Len())

	_, ok = m.Get([]byte("a"))
	assert.False(t, ok)

	_, ok = m.Pop([]byte("a"))
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	m := keymap.New(8)
	m.Set([]byte("a"), 1)
	m.Clear()
	assert.Equal(t, 0, m.Len())
	_, ok := m.Get([]byte("a"))
	assert.False(t, ok)
}

func TestIterationOrderPreservesInsertion(t *testing.T) {
	m := keymap.New(4)
	keys := []string{"z", "a", "m", "b", "q"}
	for i, k := range keys {
		m.Set([]byte(k), i)
	}

	var seen []string
	m.Iterate(func(key []byte, value any) bool {
		seen = append(seen, string(key))
		return true
	})
	assert.Equal(t, keys, seen)
}

func TestIterationStopsEarly(t *testing.T) {
	m := keymap.New(4)
	m.Set([]byte("a"), 1)
	m.Set([]byte("b"), 2)
	m.Set([]byte("c"), 3)

	var seen []string
	m.Iterate(func(key []byte, value any) bool {
		seen = append(seen, string(key))
		return len(seen) < 2
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestRehashPreservesAllEntriesAndOrder(t *testing.T) {
	m := keymap.New(4)
	var keys []string
	for i := 0; i < 100; i++ {
		k := fmt.Sprintf("key-%03d", i)
		keys = append(keys, k)
		m.Set([]byte(k), i)
	}
	assert.Equal(t, 100, m.Len())

	var seen []string
	m.Iterate(func(key []byte, value any) bool {
		seen = append(seen, string(key))
		return true
	})
	assert.Equal(t, keys, seen)

	for i, k := range keys {
		v, ok := m.Get([]byte(k))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestPopThenReinsertKeepsMapConsistent(t *testing.T) {
	m := keymap.New(4)
	for i := 0; i < 20; i++ {
		m.Set([]byte(fmt.Sprintf("k%d", i)), i)
	}
	for i := 0; i < 20; i += 2 {
		_, ok := m.Pop([]byte(fmt.Sprintf("k%d", i)))
		require.True(t, ok)
	}
	for i := 0; i < 20; i++ {
		v, ok := m.Get([]byte(fmt.Sprintf("k%d", i)))
		if i%2 == 0 {
			assert.False(t, ok)
		} else {
			require.True(t, ok)
			assert.Equal(t, i, v)
		}
	}
	m.Set([]byte("k0"), 1000)
	v, ok := m.Get([]byte("k0"))
	require.True(t, ok)
	assert.Equal(t, 1000, v)
}
