package subscription

import (
	"context"
	"reflect"

	"github.com/google/uuid"
)

// HandlerFunc receives one published event.
type HandlerFunc func(ctx context.Context, sender, args any) error

// Subscription is a handler bound to a source type and, optionally, an
// event-args type. It compares by identity.
type Subscription struct {
	id         string
	sourceType reflect.Type
	argsType   reflect.Type
	handler    HandlerFunc
}

// New creates a subscription. A nil argsType accepts any payload.
func New(sourceType, argsType reflect.Type, handler HandlerFunc) *Subscription {
	return &Subscription{
		id:         uuid.New().String(),
		sourceType: sourceType,
		argsType:   argsType,
		handler:    handler,
	}
}

// Typed creates a subscription for senders of TSource and payloads of
// TArgs with a strongly typed handler.
func Typed[TSource, TArgs any](fn func(ctx context.Context, source TSource, args TArgs) error) *Subscription {
	return New(reflect.TypeFor[TSource](), reflect.TypeFor[TArgs](), func(ctx context.Context, sender, args any) error {
		return fn(ctx, as[TSource](sender), as[TArgs](args))
	})
}

// ID returns the subscription's stable identifier.
func (s *Subscription) ID() string {
	return s.id
}

// SourceType returns the declared source type.
func (s *Subscription) SourceType() reflect.Type {
	return s.sourceType
}

// ArgsType returns the declared event-args type, or nil for any payload.
func (s *Subscription) ArgsType() reflect.Type {
	return s.argsType
}

// Handle invokes the handler.
func (s *Subscription) Handle(ctx context.Context, sender, args any) error {
	return s.handler(ctx, sender, args)
}

// Matcher decides type compatibility; model.Matcher satisfies it.
type Matcher interface {
	Matches(actual, configured reflect.Type) bool
}

// Accepts reports whether the subscription wants an event from sender
// carrying args.
func (s *Subscription) Accepts(m Matcher, sender, args any) bool {
	return m.Matches(typeOf(sender), s.sourceType) && m.Matches(typeOf(args), s.argsType)
}

func typeOf(v any) reflect.Type {
	if v == nil {
		return nil
	}
	return reflect.TypeOf(v)
}

// as converts v to T, yielding the zero value for a nil interface.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
