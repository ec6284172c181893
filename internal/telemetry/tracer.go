// Package telemetry логи, трейсы и метрики процесса.
//
//	shutdown := telemetry.SetupTracer("storefront")
//	defer shutdown(context.Background())
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc вызвать перед выходом
type ShutdownFunc func(ctx context.Context) error

// SetupTracer ставит глобальный TracerProvider, семплирует всё.
// Экспортёра нет: спаны нужны для trace_id в логах и W3C-заголовков.
func SetupTracer(serviceName string) ShutdownFunc {
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		if err := tp.Shutdown(ctx); err != nil {
			return fmt.Errorf("telemetry: shutdown tracer provider: %w", err)
		}
		return nil
	}
}
