package auth

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/autodesk-forge/forge-api-go-client/pkg/auth"
	spanFetch           = "auth.TokenFetcher.Fetch"
	metricFetches       = "forge.auth.token_fetches"
)

type telemetry struct {
	tracer  trace.Tracer
	fetches metric.Int64Counter
}

func newTelemetry(tracer trace.Tracer, meter metric.Meter) *telemetry {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	// A failed instrument registration leaves the counter nil; fetching still works.
	fetches, _ := meter.Int64Counter(
		metricFetches,
		metric.WithDescription("Token fetches by outcome"),
		metric.WithUnit("{fetch}"),
	)

	return &telemetry{
		tracer:  tracer,
		fetches: fetches,
	}
}

func (t *telemetry) start(ctx context.Context, path, grantType string, scopeCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanFetch,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("auth.path", path),
			attribute.String("auth.grant_type", grantType),
			attribute.Int("auth.scope_count", scopeCount),
		),
	)
}

func (t *telemetry) finish(ctx context.Context, span trace.Span, status int, err error) {
	outcome := "success"
	if err != nil {
		outcome = string(ErrorKind(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	span.SetAttributes(attribute.String("auth.outcome", outcome))

	if t.fetches != nil {
		t.fetches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
