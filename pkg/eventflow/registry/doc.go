// Package registry provides an append-only, insertion-ordered registry
// safe for concurrent use.
//
// Entries are never removed: eventflow uses registries for process-lifetime
// state (source models, event fields, recognized queue names) where an entry,
// once created, lives until the process exits.
//
// # Basic Usage
//
//	names := registry.New[string, struct{}]()
//	names.Register("outbox", struct{}{})
//
//	if names.Has("outbox") {
//	    // ...
//	}
//
// # Lazy Initialization
//
// GetOrCreate is atomic. The factory runs at most once per key, even under
// concurrent access:
//
//	models := registry.New[reflect.Type, *Model]()
//	m, created := models.GetOrCreate(t, func() *Model { return newModel(t) })
//
// # Iteration
//
// All and Values return iterators over a snapshot taken when iteration
// starts, in insertion order. Each call to the iterator takes a fresh
// snapshot, so the sequences are restartable and observe entries added
// between iterations.
package registry
