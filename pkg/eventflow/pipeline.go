package eventflow

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync/atomic"
)

// ModuleKind identifies a pipeline stage.
type ModuleKind int

// Pipeline stage kinds.
const (
	KindFilter ModuleKind = iota + 1
	KindProjection
	KindQueueing
	KindRouting
	KindPublication
)

func (k ModuleKind) String() string {
	switch k {
	case KindFilter:
		return "filter"
	case KindProjection:
		return "projection"
	case KindQueueing:
		return "queueing"
	case KindRouting:
		return "routing"
	case KindPublication:
		return "publication"
	default:
		return fmt.Sprintf("ModuleKind(%d)", int(k))
	}
}

// Module is one pipeline stage. A module continues the chain by calling
// next.Invoke, optionally after mutating pc, or stops it by returning
// without doing so.
type Module interface {
	Kind() ModuleKind
	Invoke(ctx context.Context, pc *PipelineContext, next Next) error
}

// Continuation runs the remainder of a chain.
type Continuation interface {
	Invoke(ctx context.Context, pc *PipelineContext) error
}

// ContinuationFunc adapts a function to the Continuation interface.
type ContinuationFunc func(ctx context.Context, pc *PipelineContext) error

// Invoke implements Continuation.
func (f ContinuationFunc) Invoke(ctx context.Context, pc *PipelineContext) error {
	return f(ctx, pc)
}

// Next is a cursor into a pipeline's module list. Invoke runs the module
// at the cursor with a cursor advanced by one.
type Next struct {
	pipeline *Pipeline
	index    int
	tail     Continuation
}

// NextTo returns a cursor that is already past the end of any pipeline and
// hands the context to c. It lets a module run outside a pipeline.
func NextTo(c Continuation) Next {
	return Next{tail: c}
}

// Index returns the position of the module the cursor will run next.
func (n Next) Index() int {
	return n.index
}

// Invoke implements Continuation.
func (n Next) Invoke(ctx context.Context, pc *PipelineContext) error {
	if n.pipeline != nil && n.index < len(n.pipeline.modules) {
		m := n.pipeline.modules[n.index]
		return m.Invoke(ctx, pc, Next{pipeline: n.pipeline, index: n.index + 1, tail: n.tail})
	}
	if n.tail != nil {
		return n.tail.Invoke(ctx, pc)
	}
	return nil
}

// Pipeline is one processing chain for a (source type, event field,
// event-args type) triple. It is immutable once the engine is built.
type Pipeline struct {
	sourceType reflect.Type
	field      string
	argsType   reflect.Type
	queueName  string
	modules    []Module
	sealed     atomic.Bool
}

// NewPipeline creates an empty pipeline. Pipelines are normally created by
// Event; this constructor exists for custom modules and tests.
func NewPipeline(sourceType reflect.Type, field string, argsType reflect.Type) *Pipeline {
	return &Pipeline{sourceType: sourceType, field: field, argsType: argsType}
}

// SourceType returns the configured source type.
func (p *Pipeline) SourceType() reflect.Type {
	return p.sourceType
}

// EventFieldName returns the configured event field.
func (p *Pipeline) EventFieldName() string {
	return p.field
}

// EventArgsType returns the configured event-args type.
func (p *Pipeline) EventArgsType() reflect.Type {
	return p.argsType
}

// QueueName returns the queue the pipeline defers to, or "" for immediate
// processing.
func (p *Pipeline) QueueName() string {
	return p.queueName
}

// Modules returns a copy of the module list.
func (p *Pipeline) Modules() []Module {
	return slices.Clone(p.modules)
}

// Len returns the number of modules.
func (p *Pipeline) Len() int {
	return len(p.modules)
}

// AddModule appends m. It panics once the pipeline is sealed.
func (p *Pipeline) AddModule(m Module) *Pipeline {
	p.mustBeOpen()
	p.modules = append(p.modules, m)
	return p
}

// SetQueueName sets the queue name. It panics once the pipeline is sealed.
func (p *Pipeline) SetQueueName(name string) *Pipeline {
	p.mustBeOpen()
	p.queueName = name
	return p
}

// Seal makes the pipeline immutable.
func (p *Pipeline) Seal() {
	p.sealed.Store(true)
}

// Sealed reports whether the pipeline is immutable.
func (p *Pipeline) Sealed() bool {
	return p.sealed.Load()
}

// Invoke runs the chain from the first module.
func (p *Pipeline) Invoke(ctx context.Context, pc *PipelineContext) error {
	return p.invokeAt(ctx, pc, 0)
}

func (p *Pipeline) invokeAt(ctx context.Context, pc *PipelineContext, index int) error {
	return Next{pipeline: p, index: index}.Invoke(ctx, pc)
}

func (p *Pipeline) mustBeOpen() {
	if p.sealed.Load() {
		panic(errLateConfiguration)
	}
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("%s.%s(%s)", typeName(p.sourceType), p.field, typeName(p.argsType))
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
