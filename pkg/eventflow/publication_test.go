package eventflow

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventflow/pkg/eventflow/failure"
	"github.com/randalmurphal/eventflow/pkg/eventflow/receiver"
	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// auditLog is a service resolved for service-handler subscriptions.
type auditLog struct {
	name string
	rec  *recorder
}

func auditTotal(_ context.Context, a *auditLog, _ *Order, _ TotalChanged) error {
	a.rec.add(a.name)
	return nil
}

// TestPublish_AggregatesFailures tests every handler runs and failures are
// returned together.
func TestPublish_AggregatesFailures(t *testing.T) {
	store := failure.NewMemoryStore()
	e := New(WithFailureStore(store))
	require.NoError(t, e.ConfigurePipelines(publishTotals))
	boom := errors.New("handler 1 failed")
	_, err := SubscribeGlobally(e, func(context.Context, *Order, TotalChanged) error { return boom })
	require.NoError(t, err)
	rec := &recorder{}
	subscribeTotals(t, e, rec)
	scope := newTestScope(t, e, nil)

	err = e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{Total: 1})

	var agg *subscription.PublishAggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Failures, 1)
	assert.ErrorIs(t, agg.Failures[0].Err, boom)
	assert.Equal(t, 1, rec.len())

	records, err := store.List(testCtx(t), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, scope.ID(), records[0].ScopeID)
	assert.Equal(t, "TotalChanged", records[0].EventField)
	assert.Equal(t, "*eventflow.Order", records[0].SourceType)
	assert.Equal(t, "eventflow.TotalChanged", records[0].ArgsType)
	assert.Equal(t, agg.Failures[0].Subscription.ID(), records[0].SubscriptionID)
	assert.Contains(t, records[0].Error, "handler 1 failed")
}

// TestPublish_RecoversPanics tests a panicking handler is reported, not propagated.
func TestPublish_RecoversPanics(t *testing.T) {
	e := New()
	require.NoError(t, e.ConfigurePipelines(publishTotals))
	_, err := SubscribeGlobally(e, func(context.Context, *Order, TotalChanged) error { panic("kaboom") })
	require.NoError(t, err)
	rec := &recorder{}
	subscribeTotals(t, e, rec)
	scope := newTestScope(t, e, nil)

	err = e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{})

	var panicErr *subscription.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.Equal(t, 1, rec.len())
}

// TestPublish_FailureStoreSQLite tests failures land in the sqlite log
// opened from settings.
func TestPublish_FailureStoreSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.db")
	store, err := failure.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	e := New(WithFailureStore(store))
	require.NoError(t, e.ConfigurePipelines(publishTotals))
	_, err = SubscribeGlobally(e, func(context.Context, *Order, TotalChanged) error { return assert.AnError })
	require.NoError(t, err)
	scope := newTestScope(t, e, nil)
	ctx := testCtx(t)

	for range 2 {
		require.Error(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{}))
	}

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

// TestPublish_CancelBeforeRaise tests a cancelled subscription receives nothing.
func TestPublish_CancelBeforeRaise(t *testing.T) {
	e := New()
	require.NoError(t, e.ConfigurePipelines(publishTotals))
	rec := &recorder{}
	sub := subscribeTotals(t, e, rec)
	scope := newTestScope(t, e, nil)

	require.NoError(t, e.CancelGlobalSubscription(sub))
	require.NoError(t, e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{}))

	assert.Equal(t, 0, rec.len())
}

// TestPublish_NilGlobalSubscription tests a nil subscription is refused and
// later publications still reach registered handlers.
func TestPublish_NilGlobalSubscription(t *testing.T) {
	e := New()
	require.NoError(t, e.ConfigurePipelines(publishTotals))
	rec := &recorder{}
	subscribeTotals(t, e, rec)
	scope := newTestScope(t, e, nil)

	sub, err := e.AddGlobalSubscription(nil)
	assert.ErrorIs(t, err, ErrNilSubscription)
	assert.Nil(t, sub)
	_, err = SubscribeGlobally[*Order, TotalChanged](e, nil)
	assert.ErrorIs(t, err, ErrNilSubscription)
	assert.ErrorIs(t, e.CancelGlobalSubscription(nil), ErrNilSubscription)

	require.NotPanics(t, func() {
		require.NoError(t, e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{Total: 7}))
	})
	assert.Equal(t, []any{TotalChanged{Total: 7}}, rec.all())
}

// TestPublish_CancelAfterRaise tests cancelling keeps earlier deliveries.
func TestPublish_CancelAfterRaise(t *testing.T) {
	e := New()
	require.NoError(t, e.ConfigurePipelines(publishTotals))
	rec := &recorder{}
	sub := subscribeTotals(t, e, rec)
	scope := newTestScope(t, e, nil)
	ctx := testCtx(t)

	require.NoError(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{Total: 1}))
	require.NoError(t, e.CancelGlobalSubscription(sub))
	require.NoError(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{Total: 2}))

	assert.Equal(t, []any{TotalChanged{Total: 1}}, rec.all())
}

// TestPublish_ScopedSubscriptions tests scoped services resolve per scope,
// once per scope.
func TestPublish_ScopedSubscriptions(t *testing.T) {
	e := New()
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().ThenIsPublishedToScopedSubscriptions()
	}))
	require.NoError(t, e.ConfigureSubscriptions(func(b *SubscriptionsBuilder) {
		ServiceHandler(b, auditTotal).HasScopedSubscription()
	}))
	rec := &recorder{}
	var resolutions atomic.Int32
	resolverFor := func(name string) subscription.Resolver {
		services := subscription.Provide(subscription.NewServiceMap(), &auditLog{name: name, rec: rec})
		return subscription.ResolverFunc(func(t reflect.Type) (any, error) {
			resolutions.Add(1)
			return services.Resolve(t)
		})
	}
	s1 := newTestScope(t, e, resolverFor("one"))
	s2 := newTestScope(t, e, resolverFor("two"))
	ctx := testCtx(t)

	require.NoError(t, e.Raise(ctx, s1, &Order{}, "TotalChanged", TotalChanged{}))
	require.NoError(t, e.Raise(ctx, s1, &Order{}, "TotalChanged", TotalChanged{}))
	require.NoError(t, e.Raise(ctx, s2, &Order{}, "TotalChanged", TotalChanged{}))

	assert.Equal(t, []any{"one", "one", "two"}, rec.all())
	assert.Equal(t, int32(2), resolutions.Load())
}

// TestPublish_ScopedResolutionFails tests a missing scoped service fails
// publication.
func TestPublish_ScopedResolutionFails(t *testing.T) {
	e := New()
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().ThenIsPublishedToScopedSubscriptions()
	}))
	require.NoError(t, e.ConfigureSubscriptions(func(b *SubscriptionsBuilder) {
		ServiceHandler(b, auditTotal).HasScopedSubscription()
	}))
	scope := newTestScope(t, e, subscription.NewServiceMap())

	err := e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{})

	assert.ErrorIs(t, err, subscription.ErrServiceNotFound)
}

// TestPublish_GlobalServiceHandler tests global service handlers resolve
// from the root resolver at build.
func TestPublish_GlobalServiceHandler(t *testing.T) {
	rec := &recorder{}
	root := subscription.Provide(subscription.NewServiceMap(), &auditLog{name: "root", rec: rec})
	e := New(WithRootResolver(root))
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().ThenIsPublished()
	}))
	require.NoError(t, e.ConfigureSubscriptions(func(b *SubscriptionsBuilder) {
		ServiceHandler(b, auditTotal).HasGlobalSubscription()
	}))
	scope := newTestScope(t, e, nil)

	require.NoError(t, e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{}))

	assert.Equal(t, []any{"root"}, rec.all())
}

// TestPublish_GlobalBeforeScoped tests ThenIsPublished notifies global
// subscriptions first.
func TestPublish_GlobalBeforeScoped(t *testing.T) {
	rec := &recorder{}
	e := New()
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().ThenIsPublished()
	}))
	require.NoError(t, e.ConfigureSubscriptions(func(b *SubscriptionsBuilder) {
		ServiceHandler(b, auditTotal).HasScopedSubscription()
	}))
	_, err := SubscribeGlobally(e, func(context.Context, *Order, TotalChanged) error {
		rec.add("global")
		return nil
	})
	require.NoError(t, err)
	scope := newTestScope(t, e, subscription.Provide(subscription.NewServiceMap(), &auditLog{name: "scoped", rec: rec}))

	require.NoError(t, e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{}))

	assert.Equal(t, []any{"global", "scoped"}, rec.all())
}

// TestPublish_TransmissionToReceivers tests transmitted events come back in
// through a receiver and reach global subscriptions.
func TestPublish_TransmissionToReceivers(t *testing.T) {
	transport := receiver.NewLocalTransport("loopback")
	e := New(WithReceivers(transport))
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().
			ThenIsPublishedToGlobalSubscriptions(WithTransmission(transport))
	}))
	rec := &recorder{}
	subscribeTotals(t, e, rec)
	scope := newTestScope(t, e, nil)
	ctx := testCtx(t)

	require.NoError(t, e.Raise(ctx, scope, &Order{}, "TotalChanged", TotalChanged{Total: 7}))
	assert.Equal(t, 0, rec.len())

	require.NoError(t, e.StartEventReceivers(ctx))
	require.NoError(t, e.StopEventReceivers(ctx))

	assert.Equal(t, []any{TotalChanged{Total: 7}}, rec.all())
}

// TestPublish_TransmissionFails tests a closed transport fails the pipeline.
func TestPublish_TransmissionFails(t *testing.T) {
	transport := receiver.NewLocalTransport("closed")
	require.NoError(t, transport.Stop(testCtx(t)))
	e := New()
	require.NoError(t, e.ConfigurePipelines(func(b *PipelinesBuilder) {
		Event[*Order, TotalChanged](b, "TotalChanged").IsPiped().
			ThenIsPublishedToGlobalSubscriptions(WithTransmission(transport))
	}))
	scope := newTestScope(t, e, nil)

	err := e.Raise(testCtx(t), scope, &Order{}, "TotalChanged", TotalChanged{})

	assert.ErrorIs(t, err, receiver.ErrTransportClosed)
}

// TestReceivers_FailuresRecorded tests handler failures of received events
// are logged to the failure store without a scope.
func TestReceivers_FailuresRecorded(t *testing.T) {
	store := failure.NewMemoryStore()
	transport := receiver.NewLocalTransport("in")
	e := New(WithReceivers(transport), WithFailureStore(store))
	_, err := SubscribeGlobally(e, func(context.Context, *Order, TotalChanged) error { return assert.AnError })
	require.NoError(t, err)
	ctx := testCtx(t)

	require.NoError(t, e.StartEventReceivers(ctx))
	require.NoError(t, transport.Send(ctx, receiver.NewEnvelope("TotalChanged", &Order{}, TotalChanged{})))
	require.NoError(t, e.StopEventReceivers(ctx))

	records, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].ScopeID)
	assert.Equal(t, "TotalChanged", records[0].EventField)
}
