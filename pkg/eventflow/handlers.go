package eventflow

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/multierr"
)

// Handlers is a minimal native event that domain types can expose as a
// field. The zero value is ready to use.
//
//	type Order struct {
//	    TotalChanged eventflow.Handlers[TotalChanged]
//	}
//
//	o.TotalChanged.Raise(ctx, TotalChanged{Total: 42})
type Handlers[TArgs any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers []handlerEntry[TArgs]
}

type handlerEntry[TArgs any] struct {
	id uint64
	fn func(ctx context.Context, args TArgs) error
}

// Add registers fn and returns a function that removes it again.
func (h *Handlers[TArgs]) Add(fn func(ctx context.Context, args TArgs) error) (remove func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.handlers = append(h.handlers, handlerEntry[TArgs]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.handlers = slices.DeleteFunc(slices.Clone(h.handlers), func(e handlerEntry[TArgs]) bool {
				return e.id == id
			})
		})
	}
}

// Len returns the number of registered handlers.
func (h *Handlers[TArgs]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Raise calls every handler in registration order and combines their
// errors.
func (h *Handlers[TArgs]) Raise(ctx context.Context, args TArgs) error {
	h.mu.RLock()
	handlers := h.handlers
	h.mu.RUnlock()

	var errs error
	for _, e := range handlers {
		errs = multierr.Append(errs, e.fn(ctx, args))
	}
	return errs
}
