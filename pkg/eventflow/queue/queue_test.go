package queue_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/queue"
)

func TestQueue_FIFODrain(t *testing.T) {
	q := queue.New[int]("q")
	assert.Equal(t, "q", q.Name())

	for i := range 5 {
		q.Enqueue(i)
	}
	assert.Equal(t, 5, q.Len())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, q.Drain())
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Drain())
}

func TestQueue_DrainIsSnapshot(t *testing.T) {
	q := queue.New[string]("q")
	q.Enqueue("a")
	q.Enqueue("b")

	batch := q.Drain()
	for range batch {
		q.Enqueue("late")
	}

	assert.Equal(t, []string{"a", "b"}, batch)
	assert.Equal(t, 2, q.Len(), "items enqueued during processing wait for the next drain")
}

func TestQueue_Clear(t *testing.T) {
	q := queue.New[int]("q")
	q.Enqueue(1)
	q.Enqueue(2)

	assert.Equal(t, 2, q.Clear())
	assert.Equal(t, 0, q.Len())
	assert.Equal(t, 0, q.Clear())
}

func TestQueue_ConcurrentEnqueueAndDrain(t *testing.T) {
	q := queue.New[int]("q")

	const writers, perWriter = 8, 250
	var wg sync.WaitGroup
	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				q.Enqueue(w*perWriter + i)
			}
		}()
	}

	seen := make(map[int]bool)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	collect := func() {
		for _, v := range q.Drain() {
			require.False(t, seen[v], "item %d drained twice", v)
			seen[v] = true
		}
	}
	for {
		select {
		case <-done:
			collect()
			assert.Len(t, seen, writers*perWriter)
			return
		default:
			collect()
		}
	}
}

func TestSet_CreationOrder(t *testing.T) {
	s := queue.NewSet[int]()

	_, ok := s.Get("b")
	assert.False(t, ok)

	b := s.GetOrCreate("b")
	a := s.GetOrCreate("a")
	assert.Same(t, b, s.GetOrCreate("b"))
	b.Enqueue(1)
	a.Enqueue(2)
	a.Enqueue(3)

	var names []string
	for q := range s.All() {
		names = append(names, q.Name())
	}
	assert.Equal(t, []string{"b", "a"}, names)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.Pending())

	assert.Equal(t, 3, s.Clear())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 2, s.Len(), "clearing keeps the queues")
}

func TestNames(t *testing.T) {
	n := queue.NewNames("audit", "mail")
	n.Add("mail", "sync")

	assert.True(t, n.Has("audit"))
	assert.True(t, n.Has("sync"))
	assert.False(t, n.Has("Bogus"))
	assert.False(t, n.Has(""))
	assert.Equal(t, []string{"audit", "mail", "sync"}, n.List())
}
