package subscription

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Resolver resolves services by type. A scope supplies its own resolver.
type Resolver interface {
	Resolve(t reflect.Type) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(t reflect.Type) (any, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(t reflect.Type) (any, error) {
	return f(t)
}

// ServiceHandlerFunc receives an event together with the resolved service.
type ServiceHandlerFunc func(ctx context.Context, service, sender, args any) error

// Binding declares that a service of ServiceType handles events from
// SourceType carrying ArgsType.
type Binding struct {
	ServiceType reflect.Type
	SourceType  reflect.Type
	ArgsType    reflect.Type
	Handler     ServiceHandlerFunc
}

// ServiceBinding builds a Binding with a strongly typed handler.
func ServiceBinding[TService, TSource, TArgs any](
	fn func(ctx context.Context, service TService, source TSource, args TArgs) error,
) Binding {
	return Binding{
		ServiceType: reflect.TypeFor[TService](),
		SourceType:  reflect.TypeFor[TSource](),
		ArgsType:    reflect.TypeFor[TArgs](),
		Handler: func(ctx context.Context, service, sender, args any) error {
			return fn(ctx, as[TService](service), as[TSource](sender), as[TArgs](args))
		},
	}
}

// Subscribe materializes the binding against resolver.
func (b Binding) Subscribe(resolver Resolver) (*Subscription, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolve %s: %w", b.ServiceType, ErrNoResolver)
	}
	service, err := resolver.Resolve(b.ServiceType)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", b.ServiceType, err)
	}
	if service == nil {
		return nil, fmt.Errorf("resolve %s: %w", b.ServiceType, ErrServiceNotFound)
	}

	handler := b.Handler
	return New(b.SourceType, b.ArgsType, func(ctx context.Context, sender, args any) error {
		return handler(ctx, service, sender, args)
	}), nil
}

// ScopedService records scoped service bindings. Bindings are declared at
// configuration time and instantiated once per scope.
type ScopedService struct {
	mu       sync.RWMutex
	bindings []Binding
}

// NewScopedService creates an empty scoped subscription service.
func NewScopedService() *ScopedService {
	return &ScopedService{}
}

// Configure records a binding.
func (s *ScopedService) Configure(b Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings = append(s.bindings, b)
}

// Len returns the number of recorded bindings.
func (s *ScopedService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bindings)
}

// SubscribeServices creates one subscription per binding by resolving each
// service type from resolver. Any resolution failure aborts the call.
func (s *ScopedService) SubscribeServices(resolver Resolver) ([]*Subscription, error) {
	s.mu.RLock()
	bindings := s.bindings
	s.mu.RUnlock()

	subs := make([]*Subscription, 0, len(bindings))
	for _, b := range bindings {
		sub, err := b.Subscribe(resolver)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}
