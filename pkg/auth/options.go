package auth

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
}

// Option configures a TokenFetcher.
type Option func(*options)

// WithLogger sets the structured logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMeter overrides the meter taken from the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}
