package eventflow

import (
	"log/slog"

	"github.com/randalmurphal/eventflow/pkg/eventflow/config"
	"github.com/randalmurphal/eventflow/pkg/eventflow/failure"
	"github.com/randalmurphal/eventflow/pkg/eventflow/observability"
	"github.com/randalmurphal/eventflow/pkg/eventflow/receiver"
	"github.com/randalmurphal/eventflow/pkg/eventflow/subscription"
)

// Validatable is a configuration object checked once before the first
// pipeline runs.
type Validatable interface {
	Validate() error
}

// engineConfig holds construction options.
type engineConfig struct {
	logger          *slog.Logger
	metricsEnabled  bool
	tracingEnabled  bool
	metrics         observability.MetricsRecorder
	spans           observability.SpanManager
	queues          []string
	maxRoutingDepth int
	rootResolver    subscription.Resolver
	validatables    []Validatable
	failureStore    failure.Store
	settings        *config.Settings
	receivers       []receiver.Receiver
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter
// provider. Default: false
func WithMetrics(enabled bool) Option {
	return func(c *engineConfig) {
		c.metricsEnabled = enabled
	}
}

// WithTracing enables OpenTelemetry tracing through the global tracer
// provider. Default: false
func WithTracing(enabled bool) Option {
	return func(c *engineConfig) {
		c.tracingEnabled = enabled
	}
}

// WithMetricsRecorder sets a specific recorder; it takes precedence over
// WithMetrics.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(c *engineConfig) {
		c.metrics = m
	}
}

// WithSpanManager sets a specific span manager; it takes precedence over
// WithTracing.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *engineConfig) {
		c.spans = s
	}
}

// WithQueues registers recognized queue names.
func WithQueues(names ...string) Option {
	return func(c *engineConfig) {
		c.queues = append(c.queues, names...)
	}
}

// WithMaxRoutingDepth bounds nested routing.
// Default: 10
func WithMaxRoutingDepth(n int) Option {
	return func(c *engineConfig) {
		if n > 0 {
			c.maxRoutingDepth = n
		}
	}
}

// WithRootResolver sets the resolver used for global service-handler
// subscriptions, which are resolved once at build time.
func WithRootResolver(r subscription.Resolver) Option {
	return func(c *engineConfig) {
		c.rootResolver = r
	}
}

// WithValidatables registers configuration objects to validate at build.
func WithValidatables(v ...Validatable) Option {
	return func(c *engineConfig) {
		c.validatables = append(c.validatables, v...)
	}
}

// WithFailureStore records every failed publication handler in store.
// The engine does not close a store passed this way.
func WithFailureStore(store failure.Store) Option {
	return func(c *engineConfig) {
		c.failureStore = store
	}
}

// WithReceivers registers external event receivers.
func WithReceivers(r ...receiver.Receiver) Option {
	return func(c *engineConfig) {
		c.receivers = append(c.receivers, r...)
	}
}

// WithSettings applies loaded settings and registers them as a
// validatable. Explicit options given after it override individual fields.
func WithSettings(s config.Settings) Option {
	return func(c *engineConfig) {
		c.settings = &s
		c.queues = append(c.queues, s.Queues...)
		if s.MaxRoutingDepth > 0 {
			c.maxRoutingDepth = s.MaxRoutingDepth
		}
		c.metricsEnabled = c.metricsEnabled || s.Metrics
		c.tracingEnabled = c.tracingEnabled || s.Tracing
		c.validatables = append(c.validatables, s)
	}
}
