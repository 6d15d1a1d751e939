package eventflow

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/queue"
	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// Scope is one unit of work: it owns its queues, its scoped
// subscriptions, and the sources attached to it. Nothing it holds outlives
// Close.
type Scope struct {
	id       string
	engine   *Engine
	resolver subscription.Resolver
	logger   *slog.Logger
	queues   *queue.Set[QueuedPipelineEvent]

	subsOnce sync.Once
	subs     []*subscription.Subscription
	subsErr  error

	mu          sync.Mutex
	closed      bool
	attachments map[any][]func()
}

// ScopeOption configures a scope.
type ScopeOption func(*Scope)

// WithScopeID overrides the generated scope ID.
func WithScopeID(id string) ScopeOption {
	return func(s *Scope) {
		if id != "" {
			s.id = id
		}
	}
}

func newScope(e *Engine, resolver subscription.Resolver, opts ...ScopeOption) *Scope {
	s := &Scope{
		id:          uuid.New().String(),
		engine:      e,
		resolver:    resolver,
		queues:      queue.NewSet[QueuedPipelineEvent](),
		attachments: make(map[any][]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.EnrichLogger(e.logger, s.id)
	return s
}

// ID returns the scope identifier.
func (s *Scope) ID() string {
	return s.id
}

// Resolver returns the scope's service resolver.
func (s *Scope) Resolver() subscription.Resolver {
	return s.resolver
}

// ScopedSubscriptions materializes the engine's scoped service bindings
// against this scope's resolver. It runs once per scope; later calls
// return the cached result.
func (s *Scope) ScopedSubscriptions() ([]*subscription.Subscription, error) {
	s.subsOnce.Do(func() {
		s.subs, s.subsErr = s.engine.scoped.SubscribeServices(s.resolver)
	})
	return s.subs, s.subsErr
}

// PendingEvents returns the number of events waiting in the named queue,
// or in all queues when name is empty.
func (s *Scope) PendingEvents(name string) int {
	if name == "" {
		return s.queues.Pending()
	}
	q, ok := s.queues.Get(name)
	if !ok {
		return 0
	}
	return q.Len()
}

// Close detaches every source and discards every queued event.
// Closing twice is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	attachments := s.attachments
	s.attachments = nil
	s.queues.Clear()
	s.mu.Unlock()

	for _, uninstall := range attachments {
		for _, fn := range uninstall {
			fn()
		}
	}
	return nil
}

// enqueue appends item to the named queue unless the scope is closed. The
// check and the append happen under the same lock Close takes.
func (s *Scope) enqueue(name string, item QueuedPipelineEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrScopeClosed
	}
	s.queues.GetOrCreate(name).Enqueue(item)
	return nil
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
