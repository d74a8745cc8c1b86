package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProvider builds and registers an SDK TracerProvider for
// serviceName, sampling every span. No exporter is attached — there is
// no OTLP/Jaeger client in this build, so spans are recorded in-process
// and discarded rather than shipped anywhere; the SDK types are still
// real and every reasoning iteration and sub-agent run produces a span.
// The returned shutdown func flushes the provider on exit.
func NewTracerProvider(serviceName string) (*sdktrace.TracerProvider, func(context.Context) error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attribute.String("service.name", serviceName)))
	if err != nil {
		res = resource.Default()
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	return provider, provider.Shutdown
}
