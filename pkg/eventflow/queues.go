package eventflow

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/queue"
)

// QueuedPipelineEvent is a pipeline suspended at its Queueing stage.
// ResumeAt is the index of the module after Queueing.
type QueuedPipelineEvent struct {
	Pipeline *Pipeline
	Event    *PipelineEvent
	ResumeAt int
}

// QueuesService enqueues, drains, and discards the queued events of scopes.
type QueuesService struct {
	names   *queue.Names
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// NewQueuesService creates a queues service recognizing names. logger may
// be nil; nil metrics and spans default to no-ops.
func NewQueuesService(names *queue.Names, logger *slog.Logger, metrics observability.MetricsRecorder, spans observability.SpanManager) *QueuesService {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if spans == nil {
		spans = observability.NoopSpanManager{}
	}
	return &QueuesService{names: names, logger: logger, metrics: metrics, spans: spans}
}

// Names returns the recognized queue names.
func (s *QueuesService) Names() *queue.Names {
	return s.names
}

// Enqueue appends the event to the scope's queue named by the pipeline,
// creating the queue on first use.
func (s *QueuesService) Enqueue(ctx context.Context, scope *Scope, event *PipelineEvent, pipeline *Pipeline, resumeAt int) error {
	switch {
	case scope == nil:
		return ErrNilScope
	case event == nil:
		return ErrNilEvent
	case pipeline == nil:
		return ErrNilPipeline
	}
	name := pipeline.QueueName()
	if !s.names.Has(name) {
		return &QueueNotFoundError{Name: name}
	}
	if err := scope.enqueue(name, QueuedPipelineEvent{
		Pipeline: pipeline,
		Event:    event,
		ResumeAt: resumeAt,
	}); err != nil {
		return err
	}
	s.metrics.RecordEnqueue(ctx, name)
	return nil
}

// ProcessQueuedEvents drains the named queue of scope, or every queue the
// scope holds when name is empty. Each drained item resumes its pipeline
// after the Queueing stage, in enqueue order, one at a time. A failing
// item does not stop the drain; all failures are returned combined.
func (s *QueuesService) ProcessQueuedEvents(ctx context.Context, scope *Scope, name string) error {
	targets, err := s.targets(scope, name)
	if err != nil {
		return err
	}

	var errs error
	for _, q := range targets {
		errs = multierr.Append(errs, s.drain(ctx, scope, q))
	}
	return errs
}

func (s *QueuesService) drain(ctx context.Context, scope *Scope, q *queue.Queue[QueuedPipelineEvent]) error {
	ctx, span := s.spans.StartDrainSpan(ctx, q.Name())
	done := observability.TimedOperation()

	items := q.Drain()
	var errs error
	for _, item := range items {
		pc := &PipelineContext{Event: item.Event, Scope: scope, Pipeline: item.Pipeline}
		if err := item.Pipeline.invokeAt(resumeContext(ctx, item.Pipeline), pc, item.ResumeAt); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("queue %s: %s: %w", q.Name(), item.Pipeline, err))
		}
	}

	s.metrics.RecordDrain(ctx, q.Name(), len(items))
	observability.LogQueueDrain(scope.logger, q.Name(), len(items), done(), errs)
	s.spans.EndSpanWithError(span, errs)
	return errs
}

// DiscardQueuedEvents empties the named queue of scope, or every queue
// when name is empty, without running anything. It returns the number of
// events discarded.
func (s *QueuesService) DiscardQueuedEvents(ctx context.Context, scope *Scope, name string) (int, error) {
	targets, err := s.targets(scope, name)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, q := range targets {
		n := q.Clear()
		total += n
		s.metrics.RecordDiscard(ctx, q.Name(), n)
		observability.LogQueueDiscard(scope.logger, q.Name(), n)
	}
	return total, nil
}

// targets resolves the queues an operation applies to. Nothing is
// mutated when an error is returned.
func (s *QueuesService) targets(scope *Scope, name string) ([]*queue.Queue[QueuedPipelineEvent], error) {
	if scope == nil {
		return nil, ErrNilScope
	}
	if name != "" && !s.names.Has(name) {
		return nil, &QueueNotFoundError{Name: name}
	}
	if scope.isClosed() {
		return nil, ErrScopeClosed
	}

	if name != "" {
		return []*queue.Queue[QueuedPipelineEvent]{scope.queues.GetOrCreate(name)}, nil
	}
	var out []*queue.Queue[QueuedPipelineEvent]
	for q := range scope.queues.All() {
		out = append(out, q)
	}
	return out, nil
}
