package model

import (
	"iter"
	"reflect"
	"sync"

	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// Pipeline is what an EventField stores. Implementations must be safe to
// share across goroutines once configuration completes.
type Pipeline interface {
	// EventArgsType is the event-args type the pipeline was configured for.
	EventArgsType() reflect.Type
}

// SourceModel records the events configured for one source type.
type SourceModel[P Pipeline] struct {
	sourceType reflect.Type
	sequence   int
	fields     *registry.Registry[string, *EventField[P]]
	matcher    *Matcher
}

// Type returns the source type this model describes.
func (m *SourceModel[P]) Type() reflect.Type {
	return m.sourceType
}

// Sequence returns the model's creation position within its registry.
func (m *SourceModel[P]) Sequence() int {
	return m.sequence
}

// GetOrCreateEventField returns the field with the given name, creating it
// on first use.
func (m *SourceModel[P]) GetOrCreateEventField(name string) *EventField[P] {
	f, _ := m.fields.GetOrCreate(name, func() *EventField[P] {
		return &EventField[P]{name: name, matcher: m.matcher}
	})
	return f
}

// GetEventField returns the field with the given name if it was configured.
func (m *SourceModel[P]) GetEventField(name string) (*EventField[P], bool) {
	return m.fields.Get(name)
}

// EventFields iterates the configured fields in creation order.
func (m *SourceModel[P]) EventFields() iter.Seq[*EventField[P]] {
	return m.fields.Values()
}

// EventField is one named event of a source type and its pipelines.
type EventField[P Pipeline] struct {
	name    string
	matcher *Matcher

	mu        sync.RWMutex
	pipelines []P
}

// Name returns the event field name.
func (f *EventField[P]) Name() string {
	return f.name
}

// AddPipeline appends a pipeline. Configuration order is preserved.
func (f *EventField[P]) AddPipeline(p P) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pipelines = append(f.pipelines, p)
}

// Pipelines returns a copy of the configured pipelines.
func (f *EventField[P]) Pipelines() []P {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]P, len(f.pipelines))
	copy(out, f.pipelines)
	return out
}

// MatchingPipelines returns, in configuration order, every pipeline whose
// event-args type accepts a payload of argsType.
func (f *EventField[P]) MatchingPipelines(argsType reflect.Type) []P {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []P
	for _, p := range f.pipelines {
		if f.matcher.Matches(argsType, p.EventArgsType()) {
			out = append(out, p)
		}
	}
	return out
}
