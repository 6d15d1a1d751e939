package subscription

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

// Failure pairs a failed subscription with its error.
type Failure struct {
	Subscription *Subscription
	Err          error
}

// Publish delivers sender/args to every subscription in order. All handlers
// run regardless of individual failures. When one or more fail, Publish
// returns a *PublishAggregateError holding every failure, in order.
func Publish(ctx context.Context, subs []*Subscription, sender, args any) error {
	var failures []Failure
	for _, s := range subs {
		if err := invoke(ctx, s, sender, args); err != nil {
			failures = append(failures, Failure{Subscription: s, Err: err})
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return &PublishAggregateError{Failures: failures}
}

func invoke(ctx context.Context, s *Subscription, sender, args any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{SubscriptionID: s.ID(), Value: r, Stack: string(debug.Stack())}
		}
	}()
	return s.Handle(ctx, sender, args)
}

// PublishAggregateError bundles every handler failure of one publication.
type PublishAggregateError struct {
	Failures []Failure
}

// Error implements the error interface.
func (e *PublishAggregateError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Err.Error()
	}
	return fmt.Sprintf("%d subscription handler(s) failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// Unwrap returns the inner errors for errors.Is/As support.
func (e *PublishAggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// PanicError captures a panic raised by a subscription handler.
type PanicError struct {
	SubscriptionID string
	Value          any
	Stack          string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("subscription %s panicked: %v", e.SubscriptionID, e.Value)
}
