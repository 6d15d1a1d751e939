package eventflow

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/failure"
	"github.com/randalmurphal/eventflow/pkg/eventflow/model"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/queue"
	"github.com/randalmurphal/eventflow/pkg/eventflow/receiver"
	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// Engine owns the source models, subscriptions, and queue configuration
// of one application. Configuration is recorded until first use, then
// built exactly once and sealed.
type Engine struct {
	cfg      engineConfig
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	maxDepth int

	models     *model.Registry[*Pipeline]
	captures   *CaptureRegistry
	global     *subscription.GlobalCollection
	scoped     *subscription.ScopedService
	queueNames *queue.Names
	queues     *QueuesService
	attaching  *AttachingService
	receivers  *receiver.Service

	failures     failure.Store
	ownsFailures bool

	mu                   sync.Mutex
	configurable         bool
	pipelineBuilders     []func(*PipelinesBuilder)
	subscriptionBuilders []func(*SubscriptionsBuilder)

	buildOnce sync.Once
	buildErr  error
	sealed    atomic.Bool
}

// New creates an engine.
//
// Example:
//
//	engine := eventflow.New(eventflow.WithQueues("audit"))
//	engine.ConfigurePipelines(func(b *eventflow.PipelinesBuilder) {
//	    eventflow.Event[*Order, TotalChanged](b, "TotalChanged").
//	        IsPiped().
//	        ThenIsPublishedToGlobalSubscriptions()
//	})
func New(opts ...Option) *Engine {
	cfg := engineConfig{maxRoutingDepth: config.DefaultMaxRoutingDepth}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		if cfg.settings != nil && cfg.settings.LogLevel != "" {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.settings.Level()}))
		} else {
			logger = slog.New(slog.DiscardHandler)
		}
	}

	metrics := cfg.metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
		if cfg.metricsEnabled {
			metrics = observability.NewMetricsRecorder()
		}
	}
	spans := cfg.spans
	if spans == nil {
		spans = observability.NoopSpanManager{}
		if cfg.tracingEnabled {
			spans = observability.NewSpanManager()
		}
	}

	e := &Engine{
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		spans:        spans,
		maxDepth:     cfg.maxRoutingDepth,
		models:       model.NewRegistry[*Pipeline](),
		captures:     NewCaptureRegistry(),
		global:       subscription.NewGlobalCollection(),
		scoped:       subscription.NewScopedService(),
		queueNames:   queue.NewNames(cfg.queues...),
		receivers:    receiver.NewService(logger, cfg.receivers...),
		failures:     cfg.failureStore,
		configurable: true,
	}
	e.queues = NewQueuesService(e.queueNames, logger, metrics, spans)
	e.attaching = &AttachingService{models: e.models, captures: e.captures, raise: e.Raise}
	return e
}

// ConfigurePipelines records a pipeline builder to run at build time.
// After the build it returns a *ConfigurationError wrapping ErrAlreadyBuilt.
func (e *Engine) ConfigurePipelines(fn func(*PipelinesBuilder)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.configurable {
		return errLateConfiguration
	}
	if fn != nil {
		e.pipelineBuilders = append(e.pipelineBuilders, fn)
	}
	return nil
}

// ConfigureSubscriptions records a subscriptions builder to run at build
// time, after every pipeline builder.
func (e *Engine) ConfigureSubscriptions(fn func(*SubscriptionsBuilder)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.configurable {
		return errLateConfiguration
	}
	if fn != nil {
		e.subscriptionBuilders = append(e.subscriptionBuilders, fn)
	}
	return nil
}

// Build validates and builds the engine. It runs once; every call returns
// the result of that run. Builders must not call back into the engine.
func (e *Engine) Build() error {
	e.buildOnce.Do(e.build)
	return e.buildErr
}

func (e *Engine) build() {
	e.mu.Lock()
	e.configurable = false
	pipelineBuilders := e.pipelineBuilders
	subscriptionBuilders := e.subscriptionBuilders
	e.mu.Unlock()
	defer e.sealed.Store(true)

	done := observability.TimedOperation()

	for _, v := range e.cfg.validatables {
		if err := v.Validate(); err != nil {
			e.buildErr = &ValidationError{Target: v, Err: err}
			e.logger.Error("engine validation failed", slog.String("error", err.Error()))
			return
		}
	}

	pb := &PipelinesBuilder{engine: e}
	for _, fn := range pipelineBuilders {
		fn(pb)
	}
	sb := &SubscriptionsBuilder{engine: e}
	for _, fn := range subscriptionBuilders {
		fn(sb)
	}

	problems := append(pb.problems, sb.problems...)
	problems = append(problems, pb.checkDeclarations()...)
	if err := e.openFailureStore(); err != nil {
		problems = append(problems, err)
	}
	for _, p := range pb.pipelines {
		p.Seal()
	}

	if len(problems) > 0 {
		e.buildErr = &ConfigurationError{Problems: problems}
		e.logger.Error("engine build failed", slog.String("error", e.buildErr.Error()))
		return
	}
	e.logger.Debug("engine built",
		slog.Int("pipelines", len(pb.pipelines)),
		slog.Int("captures", e.captures.Len()),
		slog.Float64("duration_ms", done()),
	)
}

func (e *Engine) openFailureStore() error {
	if e.failures != nil || e.cfg.settings == nil {
		return nil
	}
	switch s := e.cfg.settings.FailureStore; s.Driver {
	case config.StoreMemory:
		e.failures, e.ownsFailures = failure.NewMemoryStore(), true
	case config.StoreSQLite:
		store, err := failure.NewSQLiteStore(s.Path)
		if err != nil {
			return fmt.Errorf("open failure store: %w", err)
		}
		e.failures, e.ownsFailures = store, true
	}
	return nil
}

// Close releases the failure store the engine opened from settings.
func (e *Engine) Close() error {
	if e.ownsFailures && e.failures != nil {
		return e.failures.Close()
	}
	return nil
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// FailureStore returns the failure log, or nil when none is configured.
func (e *Engine) FailureStore() failure.Store {
	return e.failures
}

// Queues returns the queues service.
func (e *Engine) Queues() *QueuesService {
	return e.queues
}

// SourceModels iterates the built source models.
func (e *Engine) SourceModels() (iter.Seq[*model.SourceModel[*Pipeline]], error) {
	if err := e.Build(); err != nil {
		return nil, err
	}
	return e.models.SourceModels(), nil
}

// NewScope creates a unit-of-work scope resolving scoped services from
// resolver.
func (e *Engine) NewScope(resolver subscription.Resolver, opts ...ScopeOption) (*Scope, error) {
	if err := e.Build(); err != nil {
		return nil, err
	}
	return newScope(e, resolver, opts...), nil
}

// Raise routes an occurrence of field raised by source with args through
// every matching pipeline, in configuration order. Errors from all
// pipelines are combined.
func (e *Engine) Raise(ctx context.Context, scope *Scope, source any, field string, args any) error {
	if err := e.Build(); err != nil {
		return err
	}
	switch {
	case scope == nil:
		return ErrNilScope
	case source == nil:
		return ErrNilSource
	case scope.isClosed():
		return ErrScopeClosed
	}

	e.metrics.RecordRaise(ctx, typeName(model.TypeOf(source)), field)
	return e.route(newOccurrence(ctx), scope, NewPipelineEvent(source, field, args))
}

type routingDepthKey struct{}

type routedKey struct{}

// routedSet records the pipelines already run for one occurrence, so a
// routing stage never re-enters its own pipeline or its siblings.
type routedSet struct {
	mu   sync.Mutex
	seen map[*Pipeline]struct{}
}

// newOccurrence starts tracking run pipelines afresh. A handler raising
// with the ctx it was given keeps the routing depth but not the set.
func newOccurrence(ctx context.Context) context.Context {
	return context.WithValue(ctx, routedKey{}, &routedSet{seen: make(map[*Pipeline]struct{})})
}

// resumeContext starts a new occurrence for a queued item resuming p, with
// p already counted as run.
func resumeContext(ctx context.Context, p *Pipeline) context.Context {
	routed := &routedSet{seen: map[*Pipeline]struct{}{p: {}}}
	return context.WithValue(ctx, routedKey{}, routed)
}

func (s *routedSet) claim(p *Pipeline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[p]; ok {
		return false
	}
	s.seen[p] = struct{}{}
	return true
}

func (e *Engine) route(ctx context.Context, scope *Scope, ev *PipelineEvent) error {
	senderType := model.TypeOf(ev.CurrentSender)
	field := ev.CurrentEventFieldName

	depth, _ := ctx.Value(routingDepthKey{}).(int)
	if depth >= e.maxDepth {
		return &RoutingDepthError{Max: e.maxDepth, SourceType: typeName(senderType), EventField: field}
	}
	ctx = context.WithValue(ctx, routingDepthKey{}, depth+1)

	routed, ok := ctx.Value(routedKey{}).(*routedSet)
	if !ok {
		ctx = newOccurrence(ctx)
		routed = ctx.Value(routedKey{}).(*routedSet)
	}

	ctx, span := e.spans.StartRouteSpan(ctx, typeName(senderType), field)
	observability.LogRoute(scope.logger, typeName(senderType), field)

	var errs error
	for _, p := range e.matchingPipelines(senderType, field, model.TypeOf(ev.Payload)) {
		if !routed.claim(p) {
			continue
		}
		errs = multierr.Append(errs, e.runPipeline(ctx, scope, p, ev.Clone()))
	}
	e.spans.EndSpanWithError(span, errs)
	return errs
}

// matchingPipelines lists pipelines in configuration order: models by
// creation, then each field's pipelines as configured.
func (e *Engine) matchingPipelines(senderType reflect.Type, field string, argsType reflect.Type) []*Pipeline {
	var out []*Pipeline
	for _, m := range e.models.MatchingSourceModels(senderType) {
		f, ok := m.GetEventField(field)
		if !ok {
			continue
		}
		out = append(out, f.MatchingPipelines(argsType)...)
	}
	return out
}

func (e *Engine) runPipeline(ctx context.Context, scope *Scope, p *Pipeline, ev *PipelineEvent) error {
	ctx, span := e.spans.StartPipelineSpan(ctx, p.field, typeName(p.argsType))
	observability.LogRouteToPipeline(scope.logger, ev.CurrentEventFieldName, typeName(p.argsType))

	start := time.Now()
	err := p.Invoke(ctx, &PipelineContext{Event: ev, Scope: scope, Pipeline: p})
	e.metrics.RecordPipeline(ctx, p.field, time.Since(start), err)
	if err != nil {
		observability.LogPipelineError(scope.logger, p.field, err)
	}
	e.spans.EndSpanWithError(span, err)
	return err
}

// ProcessQueuedEvents drains the named queue of scope, or all its queues
// when name is empty.
func (e *Engine) ProcessQueuedEvents(ctx context.Context, scope *Scope, name string) error {
	if err := e.Build(); err != nil {
		return err
	}
	return e.queues.ProcessQueuedEvents(ctx, scope, name)
}

// DiscardQueuedEvents empties the named queue of scope, or all its queues
// when name is empty, and returns how many events were dropped.
func (e *Engine) DiscardQueuedEvents(ctx context.Context, scope *Scope, name string) (int, error) {
	if err := e.Build(); err != nil {
		return 0, err
	}
	return e.queues.DiscardQueuedEvents(ctx, scope, name)
}

// Attach binds the captured events of source to scope.
func (e *Engine) Attach(source any, scope *Scope) error {
	if err := e.Build(); err != nil {
		return err
	}
	return e.attaching.Attach(source, scope)
}

// Detach unbinds source from scope.
func (e *Engine) Detach(source any, scope *Scope) error {
	if err := e.Build(); err != nil {
		return err
	}
	return e.attaching.Detach(source, scope)
}

// IsAttached reports whether source is attached to scope.
func (e *Engine) IsAttached(source any, scope *Scope) bool {
	return e.attaching.IsAttached(source, scope)
}

// AddGlobalSubscription registers sub process-wide and returns it as the
// handle for CancelGlobalSubscription.
func (e *Engine) AddGlobalSubscription(sub *subscription.Subscription) (*subscription.Subscription, error) {
	if err := e.Build(); err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrNilSubscription
	}
	return e.global.Add(sub), nil
}

// CancelGlobalSubscription removes sub. Deliveries already in flight
// complete; later events skip it.
func (e *Engine) CancelGlobalSubscription(sub *subscription.Subscription) error {
	if err := e.Build(); err != nil {
		return err
	}
	if sub == nil {
		return ErrNilSubscription
	}
	e.global.Remove(sub)
	return nil
}

// SubscribeGlobally registers a typed global handler for events from
// TSource carrying TArgs.
func SubscribeGlobally[TSource, TArgs any](e *Engine, fn func(ctx context.Context, source TSource, args TArgs) error) (*subscription.Subscription, error) {
	if fn == nil {
		return nil, ErrNilSubscription
	}
	return e.AddGlobalSubscription(subscription.Typed(fn))
}

// StartEventReceivers starts the configured receivers. Received envelopes
// are published to matching global subscriptions.
func (e *Engine) StartEventReceivers(ctx context.Context) error {
	if err := e.Build(); err != nil {
		return err
	}
	return e.receivers.StartReceivers(ctx, e.deliverEnvelope)
}

// StopEventReceivers stops the receivers started by StartEventReceivers.
func (e *Engine) StopEventReceivers(ctx context.Context) error {
	return e.receivers.StopReceivers(ctx)
}
