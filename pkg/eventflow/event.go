package eventflow

import (
	"time"

	"github.com/google/uuid"
)

// PipelineEvent is one occurrence of an event travelling through one
// pipeline. Projection mutates the Current* fields and Payload; the
// Original* fields never change.
type PipelineEvent struct {
	ID                     string
	OriginalSender         any
	OriginalEventFieldName string
	CurrentSender          any
	CurrentEventFieldName  string
	Payload                any
	RaisedAt               time.Time
}

// NewPipelineEvent creates the event for sender raising field with payload.
func NewPipelineEvent(sender any, field string, payload any) *PipelineEvent {
	return &PipelineEvent{
		ID:                     uuid.New().String(),
		OriginalSender:         sender,
		OriginalEventFieldName: field,
		CurrentSender:          sender,
		CurrentEventFieldName:  field,
		Payload:                payload,
		RaisedAt:               time.Now().UTC(),
	}
}

// Clone returns a shallow copy so each pipeline owns its own event.
func (e *PipelineEvent) Clone() *PipelineEvent {
	c := *e
	return &c
}

// PipelineContext is what each module receives: the event, the scope it
// was raised in, and the pipeline being executed.
type PipelineContext struct {
	Event    *PipelineEvent
	Scope    *Scope
	Pipeline *Pipeline
}
