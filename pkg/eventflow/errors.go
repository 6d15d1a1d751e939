package eventflow

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for preconditions of public operations.
var (
	// ErrNilScope indicates an operation was called without a scope.
	ErrNilScope = errors.New("scope cannot be nil")

	// ErrNilEvent indicates an operation was called without a pipeline event.
	ErrNilEvent = errors.New("pipeline event cannot be nil")

	// ErrNilPipeline indicates an operation was called without a pipeline.
	ErrNilPipeline = errors.New("pipeline cannot be nil")

	// ErrNilSource indicates an event was raised or attached without a source.
	ErrNilSource = errors.New("event source cannot be nil")

	// ErrNilSubscription indicates a global subscription or its handler was nil.
	ErrNilSubscription = errors.New("subscription cannot be nil")
)

// Sentinel errors for engine state and routing.
var (
	// ErrAlreadyBuilt indicates configuration was attempted after the
	// engine sealed its pipelines.
	ErrAlreadyBuilt = errors.New("engine already built")

	// ErrScopeClosed indicates the scope was closed.
	ErrScopeClosed = errors.New("scope closed")

	// ErrQueueNotFound indicates a queue name that is not recognized.
	ErrQueueNotFound = errors.New("queue not found")

	// ErrMaxRoutingDepth indicates nested routing exceeded the configured bound.
	ErrMaxRoutingDepth = errors.New("exceeded maximum routing depth")

	// ErrNotAttachable indicates a source whose type cannot key an attachment.
	ErrNotAttachable = errors.New("source type is not comparable")

	// ErrInvalidDeclaration marks each problem of a *ConfigurationError
	// found in a pipeline or subscription declaration.
	ErrInvalidDeclaration = errors.New("invalid declaration")
)

// errLateConfiguration is returned by configuration calls after the build
// and is the panic value of sealed builders.
var errLateConfiguration = &ConfigurationError{Problems: []error{ErrAlreadyBuilt}}

// ConfigurationError reports invalid pipeline or subscription declarations
// found while building. It joins every problem found in one build.
type ConfigurationError struct {
	Problems []error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "eventflow configuration: " + strings.Join(msgs, "; ")
}

// Unwrap returns the problems for errors.Is/As support.
func (e *ConfigurationError) Unwrap() []error {
	return e.Problems
}

// ValidationError reports a validatable configuration that failed its check.
type ValidationError struct {
	// Target is the validatable that failed.
	Target Validatable
	// Err is the error it returned.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("eventflow validation of %T: %v", e.Target, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// QueueNotFoundError reports a queue name that is not recognized.
type QueueNotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *QueueNotFoundError) Error() string {
	return fmt.Sprintf("queue %q not found", e.Name)
}

// Unwrap returns ErrQueueNotFound for errors.Is support.
func (e *QueueNotFoundError) Unwrap() error {
	return ErrQueueNotFound
}

// RoutingDepthError provides context when nested routing is cut off.
type RoutingDepthError struct {
	Max        int
	SourceType string
	EventField string
}

// Error implements the error interface.
func (e *RoutingDepthError) Error() string {
	return fmt.Sprintf("exceeded maximum routing depth (%d) routing %s.%s", e.Max, e.SourceType, e.EventField)
}

// Unwrap returns ErrMaxRoutingDepth for errors.Is support.
func (e *RoutingDepthError) Unwrap() error {
	return ErrMaxRoutingDepth
}
