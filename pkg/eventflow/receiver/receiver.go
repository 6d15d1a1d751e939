// Package receiver feeds events from outside the process into an engine
// and transmits published events out of it.
//
// A Receiver delivers Envelopes to a Deliver callback between Start and
// Stop. A Sender is the outbound half used by transmitted publications.
// LocalTransport implements both over a buffered channel, which is what
// tests and single-process deployments use.
package receiver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope carries one event across a transport.
type Envelope struct {
	ID         string
	EventField string
	Sender     any
	Args       any
	SentAt     time.Time
}

// NewEnvelope creates an envelope with a fresh ID.
func NewEnvelope(field string, sender, args any) *Envelope {
	return &Envelope{
		ID:         uuid.New().String(),
		EventField: field,
		Sender:     sender,
		Args:       args,
		SentAt:     time.Now().UTC(),
	}
}

// Deliver hands a received envelope to the engine.
type Deliver func(ctx context.Context, env *Envelope) error

// Receiver is a source of external events.
type Receiver interface {
	// Name identifies the receiver in logs and errors.
	Name() string

	// Start begins delivering envelopes and returns once the receiver is
	// running. Cancelling ctx stops delivery.
	Start(ctx context.Context, deliver Deliver) error

	// Stop stops delivery and waits for in-flight envelopes, bounded by ctx.
	Stop(ctx context.Context) error
}

// Sender transmits envelopes to a transport.
type Sender interface {
	Send(ctx context.Context, env *Envelope) error
}

var (
	// ErrTransportClosed indicates the transport was stopped.
	ErrTransportClosed = errors.New("transport closed")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("receiver already started")
)

// StartError reports a receiver that failed to start.
type StartError struct {
	Receiver string
	Err      error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start receiver %s: %v", e.Receiver, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}
