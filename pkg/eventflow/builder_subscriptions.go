package eventflow

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// SubscriptionsBuilder declares service-handler subscriptions. It is only
// valid inside a function passed to Engine.ConfigureSubscriptions. Using
// it, or a ServiceSubscription it returned, after the build panics with a
// *ConfigurationError wrapping ErrAlreadyBuilt.
type SubscriptionsBuilder struct {
	engine   *Engine
	problems []error
}

func (b *SubscriptionsBuilder) mustBeOpen() {
	if b.engine.sealed.Load() {
		panic(errLateConfiguration)
	}
}

// ServiceSubscription is a service handler awaiting its lifetime.
type ServiceSubscription struct {
	b       *SubscriptionsBuilder
	binding subscription.Binding
}

// ServiceHandler declares that a TService handles events from TSource
// carrying TArgs. Choose the lifetime with HasGlobalSubscription or
// HasScopedSubscription.
func ServiceHandler[TService, TSource, TArgs any](
	b *SubscriptionsBuilder,
	fn func(ctx context.Context, service TService, source TSource, args TArgs) error,
) *ServiceSubscription {
	b.mustBeOpen()
	s := &ServiceSubscription{b: b}
	if fn == nil {
		b.problems = append(b.problems, fmt.Errorf("%w: nil service handler", ErrInvalidDeclaration))
		return s
	}
	s.binding = subscription.ServiceBinding(fn)
	return s
}

// HasGlobalSubscription resolves the service once from the root resolver
// and subscribes it process-wide.
func (s *ServiceSubscription) HasGlobalSubscription() *ServiceSubscription {
	s.b.mustBeOpen()
	if s.binding.Handler == nil {
		return s
	}
	resolver := s.b.engine.cfg.rootResolver
	if resolver == nil {
		s.b.problems = append(s.b.problems, fmt.Errorf("%w: global subscription for %s needs a root resolver",
			ErrInvalidDeclaration, s.binding.ServiceType))
		return s
	}
	sub, err := s.binding.Subscribe(resolver)
	if err != nil {
		s.b.problems = append(s.b.problems, fmt.Errorf("%w: %w", ErrInvalidDeclaration, err))
		return s
	}
	s.b.engine.global.Add(sub)
	return s
}

// HasScopedSubscription resolves the service from each scope's resolver
// the first time that scope publishes.
func (s *ServiceSubscription) HasScopedSubscription() *ServiceSubscription {
	s.b.mustBeOpen()
	if s.binding.Handler == nil {
		return s
	}
	s.b.engine.scoped.Configure(s.binding)
	return s
}
