// Package observability provides the logging, metrics, and tracing hooks
// used by the eventflow engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every logging helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds scope context to a logger.
func EnrichLogger(logger *slog.Logger, scopeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("scope_id", scopeID))
}

// LogRoute logs the start of routing for one raised event.
func LogRoute(logger *slog.Logger, sourceType, field string) {
	if logger == nil {
		return
	}
	logger.Debug("routing event fired from "+sourceType+"."+field,
		slog.String("source_type", sourceType),
		slog.String("event_field", field),
	)
}

// LogRouteToQueue logs that a pipeline is deferring an event.
func LogRouteToQueue(logger *slog.Logger, field, queue string) {
	if logger == nil {
		return
	}
	logger.Debug("routing event to queue",
		slog.String("event_field", field),
		slog.String("queue", queue),
	)
}

// LogRouteToPipeline logs that a pipeline is about to run.
func LogRouteToPipeline(logger *slog.Logger, field, argsType string) {
	if logger == nil {
		return
	}
	logger.Debug("routing event to pipeline",
		slog.String("event_field", field),
		slog.String("args_type", argsType),
	)
}

// LogPipelineError logs a pipeline failure.
func LogPipelineError(logger *slog.Logger, field string, err error) {
	if logger == nil {
		return
	}
	logger.Error("pipeline failed",
		slog.String("event_field", field),
		slog.String("error", err.Error()),
	)
}

// LogQueueDrain logs the result of draining one queue.
func LogQueueDrain(logger *slog.Logger, queue string, items int, durationMs float64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("queue drain failed",
			slog.String("queue", queue),
			slog.Int("items", items),
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("queue drained",
		slog.String("queue", queue),
		slog.Int("items", items),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogQueueDiscard logs discarded queue items.
func LogQueueDiscard(logger *slog.Logger, queue string, items int) {
	if logger == nil {
		return
	}
	logger.Debug("queue discarded",
		slog.String("queue", queue),
		slog.Int("items", items),
	)
}

// LogPublicationFailure logs one failed subscription handler.
func LogPublicationFailure(logger *slog.Logger, subscriptionID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("subscription handler failed",
		slog.String("subscription_id", subscriptionID),
		slog.String("error", err.Error()),
	)
}

// LogFailureStoreError logs a failure-log write error (non-fatal).
func LogFailureStoreError(logger *slog.Logger, err error) {
	if logger == nil {
		return
	}
	logger.Warn("failure log write failed",
		slog.String("error", err.Error()),
	)
}

// LogReceiver logs a receiver lifecycle transition.
func LogReceiver(logger *slog.Logger, name, state string) {
	if logger == nil {
		return
	}
	logger.Info("event receiver "+state,
		slog.String("receiver", name),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
