package eventflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/failure"
	"github.com/randalmurphal/eventflow/pkg/eventflow/model"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/receiver"
	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// publish delivers the current event to the subscriptions m selects.
// Global subscriptions are notified before scoped ones.
func (e *Engine) publish(ctx context.Context, pc *PipelineContext, m *PublicationModule) error {
	ev := pc.Event
	matcher := e.models.Matcher()

	var subs []*subscription.Subscription
	if m.Global {
		if m.Sender != nil {
			env := receiver.NewEnvelope(ev.CurrentEventFieldName, ev.CurrentSender, ev.Payload)
			env.ID = ev.ID
			if err := m.Sender.Send(ctx, env); err != nil {
				return fmt.Errorf("transmit %s: %w", ev.CurrentEventFieldName, err)
			}
		} else {
			subs = append(subs, e.global.Matching(matcher, ev.CurrentSender, ev.Payload)...)
		}
	}
	if m.Scoped {
		scoped, err := pc.Scope.ScopedSubscriptions()
		if err != nil {
			return fmt.Errorf("scoped subscriptions: %w", err)
		}
		for _, s := range scoped {
			if s.Accepts(matcher, ev.CurrentSender, ev.Payload) {
				subs = append(subs, s)
			}
		}
	}

	err := subscription.Publish(ctx, subs, ev.CurrentSender, ev.Payload)
	e.recordFailures(ctx, pc.Scope.logger, failure.Record{
		EventID:    ev.ID,
		ScopeID:    pc.Scope.id,
		EventField: ev.CurrentEventFieldName,
	}, ev.CurrentSender, ev.Payload, err)
	return err
}

// deliverEnvelope publishes a received envelope to matching global
// subscriptions. It has no scope, so scoped subscriptions never see it.
func (e *Engine) deliverEnvelope(ctx context.Context, env *receiver.Envelope) error {
	subs := e.global.Matching(e.models.Matcher(), env.Sender, env.Args)
	err := subscription.Publish(ctx, subs, env.Sender, env.Args)
	e.recordFailures(ctx, e.logger, failure.Record{
		EventID:    env.ID,
		EventField: env.EventField,
	}, env.Sender, env.Args, err)
	return err
}

func (e *Engine) recordFailures(ctx context.Context, logger *slog.Logger, base failure.Record, sender, args any, err error) {
	var agg *subscription.PublishAggregateError
	if !errors.As(err, &agg) {
		return
	}
	e.metrics.RecordPublicationFailures(ctx, len(agg.Failures))

	base.SourceType = typeName(model.TypeOf(sender))
	base.ArgsType = typeName(model.TypeOf(args))
	for _, f := range agg.Failures {
		observability.LogPublicationFailure(logger, f.Subscription.ID(), f.Err)
		if e.failures == nil {
			continue
		}
		r := base
		r.SubscriptionID = f.Subscription.ID()
		r.Error = f.Err.Error()
		if werr := e.failures.Record(ctx, r); werr != nil {
			observability.LogFailureStoreError(logger, werr)
		}
	}
}
