package registry

import (
	"iter"
	"sync"
)

// Registry is a thread-safe, append-only registry of values indexed by key.
// It remembers insertion order and uses sync.RWMutex for read-heavy workloads.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
	order   []K
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register stores value under key. An existing entry keeps its original
// position in the iteration order.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = value
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[key]
	return ok
}

// GetOrCreate returns the value for key, creating it with factory if it
// doesn't exist. The second result reports whether this call created it.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) (V, bool) {
	// Fast path: check if already exists
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return v, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := r.entries[key]; ok {
		return v, false
	}

	v = factory()
	r.entries[key] = v
	r.order = append(r.order, key)
	return v, true
}

// Keys returns all keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// All returns an iterator over key/value pairs in insertion order.
// The lock is not held while the caller's loop body runs.
func (r *Registry[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		keys, values := r.snapshot()
		for i := range keys {
			if !yield(keys[i], values[i]) {
				return
			}
		}
	}
}

// Values returns an iterator over values in insertion order.
func (r *Registry[K, V]) Values() iter.Seq[V] {
	return func(yield func(V) bool) {
		_, values := r.snapshot()
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	}
}

func (r *Registry[K, V]) snapshot() ([]K, []V) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]K, len(r.order))
	values := make([]V, len(r.order))
	for i, k := range r.order {
		keys[i] = k
		values[i] = r.entries[k]
	}
	return keys, values
}
