package eventflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// Change is the base event-args type used in matching tests.
type Change interface {
	Kind() string
}

// TotalChanged is raised when an order total changes.
type TotalChanged struct {
	Total int `json:"total"`
}

func (TotalChanged) Kind() string { return "total" }

// StatusChanged is an unrelated args type.
type StatusChanged struct {
	Status string `json:"status"`
}

func (StatusChanged) Kind() string { return "status" }

// Entity is a base source type.
type Entity interface {
	EntityID() string
}

// Order is a source exposing native events.
type Order struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	TotalChanged Handlers[TotalChanged]
	Changed      Handlers[Change]
}

func (o *Order) EntityID() string { return o.ID }

// Customer is a second source type.
type Customer struct {
	Name string `json:"name"`
}

func (c *Customer) EntityID() string { return c.Name }

// OrderSummary is the projection target in projection tests.
type OrderSummary struct {
	OrderID string
}

// recorder collects deliveries in order.
type recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *recorder) add(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, v)
}

func (r *recorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// testCtx returns a context with a reasonable timeout for tests.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// newTestScope creates a scope and closes it with the test.
func newTestScope(t *testing.T, e *Engine, resolver subscription.Resolver) *Scope {
	t.Helper()
	scope, err := e.NewScope(resolver)
	require.NoError(t, err)
	t.Cleanup(func() { _ = scope.Close() })
	return scope
}

// subscribeTotals records every TotalChanged from an *Order.
func subscribeTotals(t *testing.T, e *Engine, rec *recorder) *subscription.Subscription {
	t.Helper()
	sub, err := SubscribeGlobally(e, func(_ context.Context, _ *Order, args TotalChanged) error {
		rec.add(args)
		return nil
	})
	require.NoError(t, err)
	return sub
}

// publishTotals configures Order.TotalChanged to publish globally.
func publishTotals(b *PipelinesBuilder) {
	Event[*Order, TotalChanged](b, "TotalChanged").
		IsPiped().
		ThenIsPublishedToGlobalSubscriptions()
}
