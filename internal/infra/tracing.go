package infra

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// SetupTracing installs a global tracer provider that reports finished spans
// through the process logger. When disabled the global no-op provider stays
// in place and the returned shutdown does nothing.
func SetupTracing(ctx context.Context, serviceName string, enabled bool, logger zerolog.Logger) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if errors.Is(err, resource.ErrPartialResource) || errors.Is(err, resource.ErrSchemaURLConflict) {
		logger.Warn().Err(err).Msg("tracing: partial resource detection")
	} else if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(NewLogSpanExporter(logger)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// LogSpanExporter writes each finished span as one structured log line.
type LogSpanExporter struct {
	logger zerolog.Logger
}

func NewLogSpanExporter(logger zerolog.Logger) *LogSpanExporter {
	return &LogSpanExporter{logger: logger}
}

func (e *LogSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		ev := e.logger.Info().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Str("span", span.Name()).
			Dur("duration", span.EndTime().Sub(span.StartTime())).
			Str("status", span.Status().Code.String())
		for _, kv := range span.Attributes() {
			ev = ev.Str(string(kv.Key), kv.Value.Emit())
		}
		ev.Msg("span")
	}
	return nil
}

func (e *LogSpanExporter) Shutdown(context.Context) error { return nil }

// JobAttr is the attribute key pipeline spans use for the job identifier.
const JobAttr = attribute.Key("job.id")
