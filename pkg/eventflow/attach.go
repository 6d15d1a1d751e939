package eventflow

import (
	"context"
	"reflect"

	"github.com/randalmurphal/eventflow/pkg/eventflow/model"
	"github.com/randalmurphal/eventflow/pkg/eventflow/registry"
)

// RaiseFunc forwards one captured occurrence into the engine.
type RaiseFunc func(ctx context.Context, args any) error

// Capture installs a hook on one event field of a live source. Install
// returns the function that removes the hook.
type Capture struct {
	SourceType reflect.Type
	EventField string
	Install    func(source any, raise RaiseFunc) (uninstall func())
}

type captureKey struct {
	sourceType reflect.Type
	field      string
}

// CaptureRegistry maps (source type, event field) to a Capture. It is the
// explicit descriptor table that replaces observing native events
// reflectively.
type CaptureRegistry struct {
	captures *registry.Registry[captureKey, Capture]
}

// NewCaptureRegistry creates an empty capture registry.
func NewCaptureRegistry() *CaptureRegistry {
	return &CaptureRegistry{captures: registry.New[captureKey, Capture]()}
}

// Register records c, replacing any capture for the same type and field.
func (r *CaptureRegistry) Register(c Capture) {
	r.captures.Register(captureKey{sourceType: c.SourceType, field: c.EventField}, c)
}

// Get returns the capture for a source type and field.
func (r *CaptureRegistry) Get(sourceType reflect.Type, field string) (Capture, bool) {
	return r.captures.Get(captureKey{sourceType: sourceType, field: field})
}

// Len returns the number of registered captures.
func (r *CaptureRegistry) Len() int {
	return r.captures.Len()
}

// AttachingService binds live sources to scopes through the capture
// registry.
type AttachingService struct {
	models   *model.Registry[*Pipeline]
	captures *CaptureRegistry
	raise    func(ctx context.Context, scope *Scope, source any, field string, args any) error
}

// Attach installs a hook for every captured field of every source model
// the source's type satisfies, bound to scope. Attaching the same source
// to the same scope again is a no-op. Sources must be comparable;
// pointers are the usual choice.
func (a *AttachingService) Attach(source any, scope *Scope) error {
	if source == nil {
		return ErrNilSource
	}
	if scope == nil {
		return ErrNilScope
	}
	t := reflect.TypeOf(source)
	if !t.Comparable() {
		return ErrNotAttachable
	}

	scope.mu.Lock()
	defer scope.mu.Unlock()
	if scope.closed {
		return ErrScopeClosed
	}
	if _, ok := scope.attachments[source]; ok {
		return nil
	}

	var uninstall []func()
	seen := make(map[string]bool)
	for _, m := range a.models.MatchingSourceModels(t) {
		for f := range m.EventFields() {
			name := f.Name()
			if seen[name] {
				continue
			}
			c, ok := a.captures.Get(m.Type(), name)
			if !ok {
				continue
			}
			seen[name] = true
			uninstall = append(uninstall, c.Install(source, func(ctx context.Context, args any) error {
				return a.raise(ctx, scope, source, name, args)
			}))
		}
	}
	scope.attachments[source] = uninstall
	return nil
}

// Detach removes the hooks installed by Attach. Detaching a source that is
// not attached is a no-op.
func (a *AttachingService) Detach(source any, scope *Scope) error {
	if source == nil {
		return ErrNilSource
	}
	if scope == nil {
		return ErrNilScope
	}
	if !reflect.TypeOf(source).Comparable() {
		return ErrNotAttachable
	}

	scope.mu.Lock()
	uninstall, ok := scope.attachments[source]
	delete(scope.attachments, source)
	scope.mu.Unlock()

	if ok {
		for _, fn := range uninstall {
			fn()
		}
	}
	return nil
}

// IsAttached reports whether source is attached to scope.
func (a *AttachingService) IsAttached(source any, scope *Scope) bool {
	if source == nil || scope == nil || !reflect.TypeOf(source).Comparable() {
		return false
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	_, ok := scope.attachments[source]
	return ok
}
