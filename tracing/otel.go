// Package tracing configures the OpenTelemetry jaeger exporter and wraps a
// watermill message.Publisher so every published event carries trace and
// correlation context, following the teacher's tracing/otel.go.
package tracing

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"ordersaga/correlation"
)

// ConfigureTraceProvider wires a jaeger exporter as the global tracer
// provider. When jaegerEndpoint is empty no exporter is registered, so
// spans are created but never shipped — handy for local runs without a
// collector.
func ConfigureTraceProvider(jaegerEndpoint string) (*tracesdk.TracerProvider, error) {
	var opts []tracesdk.TracerProviderOption
	opts = append(opts, tracesdk.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName("ordersaga"),
	)))

	if jaegerEndpoint != "" {
		exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("tracing: configure jaeger exporter: %w", err)
		}
		opts = append(opts, tracesdk.WithBatcher(exp))
	}

	tp := tracesdk.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp, nil
}

// PublisherDecorator injects the active span's trace context into every
// outgoing message's metadata before delegating to the wrapped publisher.
type PublisherDecorator struct {
	message.Publisher
}

func (d PublisherDecorator) Publish(topic string, messages ...*message.Message) error {
	for i := range messages {
		ctx := messages[i].Context()
		otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(messages[i].Metadata))
		if cid := correlation.FromContext(ctx); cid != "" {
			messages[i].Metadata.Set(correlation.HeaderName, cid)
		}
	}
	return d.Publisher.Publish(topic, messages...)
}
