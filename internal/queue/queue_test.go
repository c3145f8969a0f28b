package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()

	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())

	for i := 0; i < 5; i++ {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, i, got)
	}

	_, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_TryPopEmpty(t *testing.T) {
	q := New[string]()
	got, ok := q.TryPop()
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()

	const producers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	require.Equal(t, producers*perProducer, q.Len())

	seen := make(map[int]bool)
	for {
		v, ok := q.TryPop()
		if !ok {
			break
		}
		assert.False(t, seen[v], "duplicate item %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, producers*perProducer)
}
