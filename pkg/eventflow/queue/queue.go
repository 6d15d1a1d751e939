package queue

import (
	"iter"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// Queue is a named, append-only-until-drained FIFO buffer.
type Queue[T any] struct {
	name string

	mu    sync.Mutex
	items []T
}

// New creates an empty queue.
func New[T any](name string) *Queue[T] {
	return &Queue[T]{name: name}
}

// Name returns the queue name.
func (q *Queue[T]) Name() string {
	return q.name
}

// Enqueue appends an item.
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every pending item in enqueue order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Clear removes every pending item and returns how many were dropped.
func (q *Queue[T]) Clear() int {
	return len(q.Drain())
}

// Set holds the queues of one scope, keyed by name in creation order.
type Set[T any] struct {
	queues *registry.Registry[string, *Queue[T]]
}

// NewSet creates an empty queue set.
func NewSet[T any]() *Set[T] {
	return &Set[T]{queues: registry.New[string, *Queue[T]]()}
}

// GetOrCreate returns the named queue, creating it on first use.
func (s *Set[T]) GetOrCreate(name string) *Queue[T] {
	q, _ := s.queues.GetOrCreate(name, func() *Queue[T] {
		return New[T](name)
	})
	return q
}

// Get returns the named queue if it exists.
func (s *Set[T]) Get(name string) (*Queue[T], bool) {
	return s.queues.Get(name)
}

// All iterates the queues in creation order.
func (s *Set[T]) All() iter.Seq[*Queue[T]] {
	return s.queues.Values()
}

// Len returns the number of queues created so far.
func (s *Set[T]) Len() int {
	return s.queues.Len()
}

// Pending returns the total number of items across all queues.
func (s *Set[T]) Pending() int {
	n := 0
	for q := range s.queues.Values() {
		n += q.Len()
	}
	return n
}

// Clear empties every queue and returns the number of items dropped.
func (s *Set[T]) Clear() int {
	n := 0
	for q := range s.queues.Values() {
		n += q.Clear()
	}
	return n
}
