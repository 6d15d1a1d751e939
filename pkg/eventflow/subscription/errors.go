package subscription

import "errors"

var (
	// ErrServiceNotFound indicates a resolver has no instance for a type.
	ErrServiceNotFound = errors.New("service not found")

	// ErrNoResolver indicates a binding was materialized without a resolver.
	ErrNoResolver = errors.New("no service resolver")
)
