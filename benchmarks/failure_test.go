package benchmarks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/eventflow/pkg/eventflow"
	"github.com/randalmurphal/eventflow/pkg/eventflow/failure"
)

func benchmarkFailingPublish(b *testing.B, store failure.Store) {
	e := eventflow.New(eventflow.WithFailureStore(store))
	if err := e.ConfigurePipelines(func(pb *eventflow.PipelinesBuilder) {
		eventflow.Event[*Item, Changed](pb, "Changed").IsPiped().ThenIsPublishedToGlobalSubscriptions()
	}); err != nil {
		b.Fatal(err)
	}
	failing := errors.New("failing")
	if _, err := eventflow.SubscribeGlobally(e, func(context.Context, *Item, Changed) error { return failing }); err != nil {
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

// BenchmarkFailures_Memory records every failure in memory.
func BenchmarkFailures_Memory(b *testing.B) {
	benchmarkFailingPublish(b, failure.NewMemoryStore())
}

// BenchmarkFailures_SQLite records every failure in SQLite.
func BenchmarkFailures_SQLite(b *testing.B) {
	store, err := failure.NewSQLiteStore(filepath.Join(b.TempDir(), "failures.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = store.Close() })
	benchmarkFailingPublish(b, store)
}
