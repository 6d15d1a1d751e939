package eventflow

import (
	"context"
	"fmt"
	"reflect"

	"github.com/randalmurphal/eventflow/pkg/eventflow/expr"
	"github.com/randalmurphal/eventflow/pkg/eventflow/receiver"
)

// PipelinesBuilder declares pipelines and queues. It is only valid inside a
// function passed to Engine.ConfigurePipelines. Retaining it, or a
// configurator it returned, and using it after the build is a programming
// error: the call panics with a *ConfigurationError wrapping
// ErrAlreadyBuilt.
type PipelinesBuilder struct {
	engine    *Engine
	pipelines []*Pipeline
	problems  []error
}

// Queue registers recognized queue names.
func (b *PipelinesBuilder) Queue(names ...string) *PipelinesBuilder {
	b.mustBeOpen()
	for _, name := range names {
		if name == "" {
			b.problem("empty queue name")
			continue
		}
		b.engine.queueNames.Add(name)
	}
	return b
}

func (b *PipelinesBuilder) mustBeOpen() {
	if b.engine.sealed.Load() {
		panic(errLateConfiguration)
	}
}

func (b *PipelinesBuilder) problem(format string, args ...any) {
	b.problems = append(b.problems, fmt.Errorf("%w: %s", ErrInvalidDeclaration, fmt.Sprintf(format, args...)))
}

// checkDeclarations reports pipelines that were declared but given no
// stages.
func (b *PipelinesBuilder) checkDeclarations() []error {
	var problems []error
	for _, p := range b.pipelines {
		if p.Len() == 0 {
			problems = append(problems, fmt.Errorf("%w: pipeline %s has no stages", ErrInvalidDeclaration, p))
		}
	}
	return problems
}

func (b *PipelinesBuilder) addPipeline(sourceType reflect.Type, field string, argsType reflect.Type) *Pipeline {
	p := NewPipeline(sourceType, field, argsType)
	if field == "" {
		b.problem("empty event field name for %s", typeName(sourceType))
		return p
	}
	ef := b.engine.models.GetOrCreateSourceModel(sourceType).GetOrCreateEventField(field)
	ef.AddPipeline(p)
	b.pipelines = append(b.pipelines, p)
	return p
}

// EventConfigurator is the pipeline declared for one event field.
type EventConfigurator[TSource, TArgs any] struct {
	b        *PipelinesBuilder
	pipeline *Pipeline
}

// Event declares a new pipeline for the field event of TSource carrying
// TArgs. Events are raised explicitly with Engine.Raise.
func Event[TSource, TArgs any](b *PipelinesBuilder, field string) *EventConfigurator[TSource, TArgs] {
	b.mustBeOpen()
	p := b.addPipeline(reflect.TypeFor[TSource](), field, reflect.TypeFor[TArgs]())
	return &EventConfigurator[TSource, TArgs]{b: b, pipeline: p}
}

// Hook declares a pipeline like Event and registers a capture so that
// Engine.Attach subscribes to the Handlers that accessor returns for a
// source.
func Hook[TSource, TArgs any](b *PipelinesBuilder, field string, accessor func(TSource) *Handlers[TArgs]) *EventConfigurator[TSource, TArgs] {
	ec := Event[TSource, TArgs](b, field)
	if accessor == nil {
		b.problem("nil handlers accessor for %s.%s", typeName(reflect.TypeFor[TSource]()), field)
		return ec
	}
	if field == "" {
		return ec
	}
	b.engine.captures.Register(Capture{
		SourceType: reflect.TypeFor[TSource](),
		EventField: field,
		Install: func(source any, raise RaiseFunc) func() {
			src, ok := source.(TSource)
			if !ok {
				return func() {}
			}
			h := accessor(src)
			if h == nil {
				return func() {}
			}
			return h.Add(func(ctx context.Context, args TArgs) error {
				return raise(ctx, args)
			})
		},
	})
	return ec
}

// Pipeline returns the declared pipeline.
func (c *EventConfigurator[TSource, TArgs]) Pipeline() *Pipeline {
	return c.pipeline
}

// IsPiped starts adding stages to the pipeline.
func (c *EventConfigurator[TSource, TArgs]) IsPiped() *PipelineConfigurator[TSource, TArgs] {
	c.b.mustBeOpen()
	return &PipelineConfigurator[TSource, TArgs]{b: c.b, pipeline: c.pipeline}
}

// PipelineConfigurator appends stages to a pipeline. Its type parameters
// track the sender and payload types the next stage sees.
type PipelineConfigurator[TSource, TArgs any] struct {
	b        *PipelinesBuilder
	pipeline *Pipeline
}

func (c *PipelineConfigurator[TSource, TArgs]) add(m Module) *PipelineConfigurator[TSource, TArgs] {
	c.b.mustBeOpen()
	c.pipeline.AddModule(m)
	return c
}

// ThenIsFiltered continues only for events predicate accepts.
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsFiltered(predicate func(source TSource, args TArgs) bool) *PipelineConfigurator[TSource, TArgs] {
	c.b.mustBeOpen()
	if predicate == nil {
		c.b.problem("nil filter predicate on %s", c.pipeline)
		return c
	}
	return c.add(&FilterModule{Predicate: func(sender, args any) bool {
		return predicate(cast[TSource](sender), cast[TArgs](args))
	}})
}

// ThenIsFilteredBy continues only for events matching the expression. The
// expression sees the JSON form of the sender under "sender" and of the
// payload under "args":
//
//	ThenIsFilteredBy(`args.total > 100 and sender.status == "open"`)
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsFilteredBy(expression string, opts ...expr.Option) *PipelineConfigurator[TSource, TArgs] {
	c.b.mustBeOpen()
	compiled, err := expr.Compile(expression, opts...)
	if err != nil {
		c.b.problem("filter expression %q on %s: %v", expression, c.pipeline, err)
		return c
	}
	return c.add(&FilterModule{Predicate: func(sender, args any) bool {
		return compiled.Match(expr.Vars(sender, args))
	}})
}

// ThenIsQueuedTo defers the rest of the pipeline to the named queue of the
// scope the event was raised in. A pipeline can be queued once.
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsQueuedTo(queueName string) *PipelineConfigurator[TSource, TArgs] {
	c.b.mustBeOpen()
	switch {
	case queueName == "":
		c.b.problem("empty queue name on %s", c.pipeline)
		return c
	case c.pipeline.QueueName() != "":
		c.b.problem("pipeline %s is already queued to %q", c.pipeline, c.pipeline.QueueName())
		return c
	}
	c.pipeline.SetQueueName(queueName)
	return c.add(&QueueingModule{})
}

// ThenIsRouted runs the pipelines matching the current sender, field, and
// payload, then continues. Pipelines already run for the occurrence,
// including this one, are skipped.
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsRouted() *PipelineConfigurator[TSource, TArgs] {
	return c.add(&RoutingModule{})
}

// PublicationOption configures a publication stage.
type PublicationOption func(*PublicationModule)

// WithTransmission sends the event to sender instead of delivering it to
// local global subscriptions.
func WithTransmission(sender receiver.Sender) PublicationOption {
	return func(m *PublicationModule) {
		m.Sender = sender
	}
}

// ThenIsPublishedToGlobalSubscriptions delivers the event to matching
// global subscriptions.
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsPublishedToGlobalSubscriptions(opts ...PublicationOption) *PipelineConfigurator[TSource, TArgs] {
	m := &PublicationModule{Global: true}
	for _, opt := range opts {
		opt(m)
	}
	return c.add(m)
}

// ThenIsPublishedToScopedSubscriptions delivers the event to the matching
// scoped subscriptions of the scope it was raised in.
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsPublishedToScopedSubscriptions() *PipelineConfigurator[TSource, TArgs] {
	return c.add(&PublicationModule{Scoped: true})
}

// ThenIsPublished delivers the event to global, then scoped, subscriptions.
func (c *PipelineConfigurator[TSource, TArgs]) ThenIsPublished(opts ...PublicationOption) *PipelineConfigurator[TSource, TArgs] {
	m := &PublicationModule{Global: true, Scoped: true}
	for _, opt := range opts {
		opt(m)
	}
	return c.add(m)
}

// Project replaces the sender and payload. Later stages see TNewSource and
// TNewArgs; the event field is unchanged.
func Project[TSource, TArgs, TNewSource, TNewArgs any](
	c *PipelineConfigurator[TSource, TArgs],
	senderFn func(ctx context.Context, source TSource, args TArgs) (TNewSource, error),
	argsFn func(ctx context.Context, source TSource, args TArgs) (TNewArgs, error),
) *PipelineConfigurator[TNewSource, TNewArgs] {
	return ProjectTo(c, "", senderFn, argsFn)
}

// ProjectTo is Project that also renames the event field. An empty field
// keeps the current name.
func ProjectTo[TSource, TArgs, TNewSource, TNewArgs any](
	c *PipelineConfigurator[TSource, TArgs],
	field string,
	senderFn func(ctx context.Context, source TSource, args TArgs) (TNewSource, error),
	argsFn func(ctx context.Context, source TSource, args TArgs) (TNewArgs, error),
) *PipelineConfigurator[TNewSource, TNewArgs] {
	c.b.mustBeOpen()
	next := &PipelineConfigurator[TNewSource, TNewArgs]{b: c.b, pipeline: c.pipeline}
	if senderFn == nil || argsFn == nil {
		c.b.problem("nil projection on %s", c.pipeline)
		return next
	}
	c.pipeline.AddModule(&ProjectionModule{
		EventField: field,
		Project: func(ctx context.Context, sender, args any) (any, any, error) {
			src, a := cast[TSource](sender), cast[TArgs](args)
			newSender, err := senderFn(ctx, src, a)
			if err != nil {
				return nil, nil, err
			}
			newArgs, err := argsFn(ctx, src, a)
			if err != nil {
				return nil, nil, err
			}
			return newSender, newArgs, nil
		},
	})
	return next
}

// cast returns v as T, or the zero T when v is nil or of another type.
func cast[T any](v any) T {
	t, _ := v.(T)
	return t
}
