// Package observability sets up tracing and metrics and defines the instruments
// used by the API server and the chat client.
package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ShutdownFunc flushes and stops a provider
type ShutdownFunc func(context.Context) error

// SetupTracing installs a global tracer provider exporting to w.
// When disabled the global no-op provider is left in place.
func SetupTracing(serviceName string, enabled bool, w io.Writer) (ShutdownFunc, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if w != nil {
		opts = append(opts, stdouttrace.WithWriter(w))
	}
	exp, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize stdouttrace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// Tracer returns a named tracer from the global provider
func Tracer(name string) oteltrace.Tracer {
	return otel.Tracer("github.com/chatbridge/assistant/" + name)
}

// MetricsProvider bundles the otel meter provider with the Prometheus registry it feeds
type MetricsProvider struct {
	Provider *metric.MeterProvider
	registry *promclient.Registry
}

// SetupPrometheusMetrics creates a meter provider exporting into its own Prometheus registry
func SetupPrometheusMetrics() (*MetricsProvider, error) {
	registry := promclient.NewRegistry()
	exp, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("initialize prometheus exporter: %w", err)
	}
	return &MetricsProvider{
		Provider: metric.NewMeterProvider(metric.WithReader(exp)),
		registry: registry,
	}, nil
}

// Handler serves the registry in the Prometheus text format
func (m *MetricsProvider) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Shutdown stops the meter provider
func (m *MetricsProvider) Shutdown(ctx context.Context) error {
	return m.Provider.Shutdown(ctx)
}
