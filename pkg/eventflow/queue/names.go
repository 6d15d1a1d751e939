package queue

import (
	"slices"
	"sync"
)

// Names is the set of recognized queue names. It is safe for concurrent use.
type Names struct {
	mu    sync.RWMutex
	names []string
	index map[string]struct{}
}

// NewNames creates a name set holding names.
func NewNames(names ...string) *Names {
	n := &Names{index: make(map[string]struct{})}
	n.Add(names...)
	return n
}

// Add registers names. Duplicates are ignored.
func (n *Names) Add(names ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, name := range names {
		if _, ok := n.index[name]; ok {
			continue
		}
		n.index[name] = struct{}{}
		n.names = append(n.names, name)
	}
}

// Has reports whether name is recognized.
func (n *Names) Has(name string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.index[name]
	return ok
}

// List returns the recognized names in registration order.
func (n *Names) List() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return slices.Clone(n.names)
}
