package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/randalmurphal/eventflow/pkg/eventflow"
)

// Changed is the payload used by all benchmarks.
type Changed struct {
	Value int `json:"value"`
}

// Entity is an interface source type.
type Entity interface {
	Key() string
}

// Item is the concrete source.
type Item struct {
	ID      string `json:"id"`
	Changed eventflow.Handlers[Changed]
}

func (i *Item) Key() string { return i.ID }

func mustScope(b *testing.B, e *eventflow.Engine) *eventflow.Scope {
	b.Helper()
	scope, err := e.NewScope(nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = scope.Close() })
	return scope
}

func buildEngine(b *testing.B, pipelines, subscribers int, opts ...eventflow.Option) *eventflow.Engine {
	b.Helper()
	e := eventflow.New(opts...)
	if err := e.ConfigurePipelines(func(pb *eventflow.PipelinesBuilder) {
		for range pipelines {
			eventflow.Event[*Item, Changed](pb, "Changed").
				IsPiped().
				ThenIsFiltered(func(_ *Item, c Changed) bool { return c.Value >= 0 }).
				ThenIsPublishedToGlobalSubscriptions()
		}
	}); err != nil {
		b.Fatal(err)
	}
	for range subscribers {
		if _, err := eventflow.SubscribeGlobally(e, func(context.Context, *Item, Changed) error { return nil }); err != nil {
			b.Fatal(err)
		}
	}
	return e
}

// BenchmarkRaise runs one raise through N pipelines with M subscribers.
func BenchmarkRaise(b *testing.B) {
	for _, tc := range []struct{ pipelines, subscribers int }{
		{1, 1}, {1, 10}, {5, 10}, {10, 100},
	} {
		b.Run(fmt.Sprintf("pipelines=%d/subscribers=%d", tc.pipelines, tc.subscribers), func(b *testing.B) {
			e := buildEngine(b, tc.pipelines, tc.subscribers)
			scope := mustScope(b, e)
			ctx := context.Background()
			item := &Item{ID: "i"}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = e.Raise(ctx, scope, item, "Changed", Changed{Value: i})
			}
		})
	}
}

// BenchmarkRaise_InterfaceModel measures matching through an interface
// source model, which exercises the type-match cache.
func BenchmarkRaise_InterfaceModel(b *testing.B) {
	e := eventflow.New()
	if err := e.ConfigurePipelines(func(pb *eventflow.PipelinesBuilder) {
		eventflow.Event[Entity, Changed](pb, "Changed").IsPiped().ThenIsPublishedToGlobalSubscriptions()
	}); err != nil {
		b.Fatal(err)
	}
	scope := mustScope(b, e)
	ctx := context.Background()
	item := &Item{ID: "i"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Raise(ctx, scope, item, "Changed", Changed{Value: i})
	}
}

// BenchmarkRaise_Attached measures raising through a captured native event.
func BenchmarkRaise_Attached(b *testing.B) {
	e := eventflow.New()
	if err := e.ConfigurePipelines(func(pb *eventflow.PipelinesBuilder) {
		eventflow.Hook(pb, "Changed", func(i *Item) *eventflow.Handlers[Changed] { return &i.Changed }).
			IsPiped().
			ThenIsPublishedToGlobalSubscriptions()
	}); err != nil {
		b.Fatal(err)
	}
	scope := mustScope(b, e)
	item := &Item{ID: "i"}
	if err := e.Attach(item, scope); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = item.Changed.Raise(ctx, Changed{Value: i})
	}
}

// BenchmarkRaise_ExpressionFilter measures a compiled expression filter.
func BenchmarkRaise_ExpressionFilter(b *testing.B) {
	e := eventflow.New()
	if err := e.ConfigurePipelines(func(pb *eventflow.PipelinesBuilder) {
		eventflow.Event[*Item, Changed](pb, "Changed").
			IsPiped().
			ThenIsFilteredBy(`args.value >= 0 and sender.id == "i"`).
			ThenIsPublishedToGlobalSubscriptions()
	}); err != nil {
		b.Fatal(err)
	}
	scope := mustScope(b, e)
	ctx := context.Background()
	item := &Item{ID: "i"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Raise(ctx, scope, item, "Changed", Changed{Value: i})
	}
}
