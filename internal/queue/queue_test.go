package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_Empty(t *testing.T) {
	q := New[int]()
	assert.Zero(t, q.Len())

	_, ok := q.Pop()
	assert.False(t, ok)
	_, ok = q.Peek()
	assert.False(t, ok)
	assert.Empty(t, q.Drain())
}

func TestQueue_FIFO(t *testing.T) {
	q := New("a", "b")
	q.Push("c")
	require.Equal(t, 3, q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", head)

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Zero(t, q.Len())
}

func TestQueue_WrapAround(t *testing.T) {
	q := New[int]()
	next := 0
	// interleave pushes and pops so head walks around the ring while it grows
	for round := range 10 {
		for i := range round + 3 {
			q.Push(round*100 + i)
		}
		for range 2 {
			v, ok := q.Pop()
			require.True(t, ok)
			assert.GreaterOrEqual(t, v, next)
			next = v
		}
	}

	items := q.Drain()
	for i := 1; i < len(items); i++ {
		assert.Less(t, items[i-1], items[i])
	}
	assert.Zero(t, q.Len())

	q.Push(7)
	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestQueue_Drain(t *testing.T) {
	q := New(1, 2, 3)
	_, _ = q.Pop()
	assert.Equal(t, []int{2, 3}, q.Drain())
	assert.Zero(t, q.Len())
}

func TestQueue_Concurrent(t *testing.T) {
	q := New[int]()
	const workers, per = 8, 250

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range per {
				q.Push(w*per + i)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, workers*per, q.Len())

	seen := make(map[int]bool)
	var mu sync.Mutex
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				v, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*per)
}
