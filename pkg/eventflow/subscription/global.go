package subscription

import (
	"slices"
	"sync"
)

// GlobalCollection holds subscriptions independent of any scope.
// It is safe for concurrent use.
type GlobalCollection struct {
	mu   sync.RWMutex
	subs []*Subscription
}

// NewGlobalCollection creates an empty collection.
func NewGlobalCollection() *GlobalCollection {
	return &GlobalCollection{}
}

// Add registers sub and returns it as the handle for Remove. A nil sub is
// ignored.
func (c *GlobalCollection) Add(sub *Subscription) *Subscription {
	if sub == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, sub)
	return sub
}

// Remove unregisters sub. Deliveries already in flight are unaffected.
// Removing an unknown subscription is a no-op.
func (c *GlobalCollection) Remove(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = slices.DeleteFunc(slices.Clone(c.subs), func(s *Subscription) bool {
		return s == sub
	})
}

// Len returns the number of registered subscriptions.
func (c *GlobalCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

// Matching returns a snapshot of the subscriptions accepting the event.
func (c *GlobalCollection) Matching(m Matcher, sender, args any) []*Subscription {
	c.mu.RLock()
	subs := c.subs
	c.mu.RUnlock()

	var out []*Subscription
	for _, s := range subs {
		if s.Accepts(m, sender, args) {
			out = append(out, s)
		}
	}
	return out
}
