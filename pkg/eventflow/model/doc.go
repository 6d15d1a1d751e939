// Package model holds the per-type event model: which source types declare
// which named events, and the pipelines configured for each of them.
//
// A Registry owns one SourceModel per source type. A SourceModel owns one
// EventField per event name. An EventField owns an ordered list of
// pipelines, one per configuration call. Models and fields are created
// lazily and never removed.
//
// The package is generic over the pipeline type so it carries no dependency
// on how pipelines execute; the only thing it needs from a pipeline is the
// event-args type it was configured for.
//
// # Type Matching
//
// A payload matches a pipeline configured for event-args type B when the
// payload's runtime type is assignable to B: the same type, or B is an
// interface the payload implements. The same rule decides which source
// models apply to a sender. Results are cached per registry.
package model
