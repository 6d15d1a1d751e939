package eventflow

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/receiver"
)

// FilterModule continues the chain only when Predicate accepts the current
// sender and payload. A rejected event stops silently.
type FilterModule struct {
	Predicate func(sender, args any) bool
}

// Kind implements Module.
func (m *FilterModule) Kind() ModuleKind { return KindFilter }

// Invoke implements Module.
func (m *FilterModule) Invoke(ctx context.Context, pc *PipelineContext, next Next) error {
	if !m.Predicate(pc.Event.CurrentSender, pc.Event.Payload) {
		return nil
	}
	return next.Invoke(ctx, pc)
}

// ProjectionFunc maps the current sender and payload to new ones.
type ProjectionFunc func(ctx context.Context, sender, args any) (newSender, newArgs any, err error)

// ProjectionModule replaces the current sender and payload, and optionally
// the event field name, before continuing.
type ProjectionModule struct {
	// EventField renames the event when non-empty.
	EventField string
	Project    ProjectionFunc
}

// Kind implements Module.
func (m *ProjectionModule) Kind() ModuleKind { return KindProjection }

// Invoke implements Module.
func (m *ProjectionModule) Invoke(ctx context.Context, pc *PipelineContext, next Next) error {
	sender, args, err := m.Project(ctx, pc.Event.CurrentSender, pc.Event.Payload)
	if err != nil {
		return fmt.Errorf("project %s: %w", pc.Event.CurrentEventFieldName, err)
	}
	pc.Event.CurrentSender = sender
	pc.Event.Payload = args
	if m.EventField != "" {
		pc.Event.CurrentEventFieldName = m.EventField
	}
	return next.Invoke(ctx, pc)
}

// QueueingModule defers the rest of the chain to the pipeline's queue in
// the current scope. With no queue name configured it continues at once.
type QueueingModule struct{}

// Kind implements Module.
func (m *QueueingModule) Kind() ModuleKind { return KindQueueing }

// Invoke implements Module.
func (m *QueueingModule) Invoke(ctx context.Context, pc *PipelineContext, next Next) error {
	if pc.Pipeline == nil {
		return ErrNilPipeline
	}
	if pc.Pipeline.QueueName() == "" {
		return next.Invoke(ctx, pc)
	}
	if pc.Scope == nil {
		return ErrNilScope
	}
	observability.LogRouteToQueue(pc.Scope.logger, pc.Event.CurrentEventFieldName, pc.Pipeline.QueueName())
	return pc.Scope.engine.queues.Enqueue(ctx, pc.Scope, pc.Event, pc.Pipeline, next.Index())
}

// RoutingModule re-resolves pipelines for the current sender, field, and
// payload, runs those not yet run for this occurrence, then continues.
type RoutingModule struct{}

// Kind implements Module.
func (m *RoutingModule) Kind() ModuleKind { return KindRouting }

// Invoke implements Module.
func (m *RoutingModule) Invoke(ctx context.Context, pc *PipelineContext, next Next) error {
	if pc.Scope == nil {
		return ErrNilScope
	}
	if err := pc.Scope.engine.route(ctx, pc.Scope, pc.Event); err != nil {
		return err
	}
	return next.Invoke(ctx, pc)
}

// PublicationModule delivers the event to global and/or scoped
// subscriptions. Every matching handler runs; failures are returned as one
// *subscription.PublishAggregateError after all of them ran.
type PublicationModule struct {
	Global bool
	Scoped bool
	// Sender, when set, transmits the event instead of delivering it to
	// local global subscriptions.
	Sender receiver.Sender
}

// Kind implements Module.
func (m *PublicationModule) Kind() ModuleKind { return KindPublication }

// Invoke implements Module.
func (m *PublicationModule) Invoke(ctx context.Context, pc *PipelineContext, next Next) error {
	if pc.Scope == nil {
		return ErrNilScope
	}
	if err := pc.Scope.engine.publish(ctx, pc, m); err != nil {
		return err
	}
	return next.Invoke(ctx, pc)
}

var (
	_ Module       = (*FilterModule)(nil)
	_ Module       = (*ProjectionModule)(nil)
	_ Module       = (*QueueingModule)(nil)
	_ Module       = (*RoutingModule)(nil)
	_ Module       = (*PublicationModule)(nil)
	_ Continuation = Next{}
)
