package model

import (
	"iter"
	"reflect"
	"sync/atomic"

	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// Registry maps source types to their SourceModel. It is safe for
// concurrent use; models live as long as the registry.
type Registry[P Pipeline] struct {
	models  *registry.Registry[reflect.Type, *SourceModel[P]]
	matcher *Matcher
	next    atomic.Int64
}

// NewRegistry creates an empty source-model registry.
func NewRegistry[P Pipeline]() *Registry[P] {
	return &Registry[P]{
		models:  registry.New[reflect.Type, *SourceModel[P]](),
		matcher: NewMatcher(DefaultMatchCacheSize),
	}
}

// Matcher returns the type matcher shared by the registry's models.
func (r *Registry[P]) Matcher() *Matcher {
	return r.matcher
}

// GetOrCreateSourceModel returns the model for t, creating it atomically on
// first use. Repeated calls for the same type return the same instance.
func (r *Registry[P]) GetOrCreateSourceModel(t reflect.Type) *SourceModel[P] {
	m, _ := r.models.GetOrCreate(t, func() *SourceModel[P] {
		return &SourceModel[P]{
			sourceType: t,
			sequence:   int(r.next.Add(1)),
			fields:     registry.New[string, *EventField[P]](),
			matcher:    r.matcher,
		}
	})
	return m
}

// GetSourceModel returns the model for t if one was created.
func (r *Registry[P]) GetSourceModel(t reflect.Type) (*SourceModel[P], bool) {
	return r.models.Get(t)
}

// SourceModels iterates every created model. The sequence is lazy and
// restartable; each iteration observes the models present when it starts.
func (r *Registry[P]) SourceModels() iter.Seq[*SourceModel[P]] {
	return r.models.Values()
}

// MatchingSourceModels returns, in creation order, every model whose type
// a sender of senderType satisfies.
func (r *Registry[P]) MatchingSourceModels(senderType reflect.Type) []*SourceModel[P] {
	var out []*SourceModel[P]
	for m := range r.models.Values() {
		if r.matcher.Matches(senderType, m.sourceType) {
			out = append(out, m)
		}
	}
	return out
}
