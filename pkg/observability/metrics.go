package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metrics holds the instruments shared by the server and the client core.
// The zero value is not usable; build one with NewMetrics or Noop.
type Metrics struct {
	responderCalls   otelmetric.Int64Counter
	responderLatency otelmetric.Float64Histogram
	sends            otelmetric.Int64Counter
	refreshes        otelmetric.Int64Counter
	cacheLookups     otelmetric.Int64Counter
}

// NewMetrics registers the instruments on mp
func NewMetrics(mp otelmetric.MeterProvider) (*Metrics, error) {
	meter := mp.Meter("github.com/chatbridge/assistant")

	responderCalls, err := meter.Int64Counter("responder_calls_total",
		otelmetric.WithDescription("Responder invocations by outcome"))
	if err != nil {
		return nil, err
	}
	responderLatency, err := meter.Float64Histogram("responder_latency_seconds",
		otelmetric.WithDescription("Responder round trip time"),
		otelmetric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	sends, err := meter.Int64Counter("chat_sends_total",
		otelmetric.WithDescription("Send attempts by outcome"))
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("view_refreshes_total",
		otelmetric.WithDescription("View refreshes by view and result"))
	if err != nil {
		return nil, err
	}
	cacheLookups, err := meter.Int64Counter("cache_lookups_total",
		otelmetric.WithDescription("Read cache lookups by result"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		responderCalls:   responderCalls,
		responderLatency: responderLatency,
		sends:            sends,
		refreshes:        refreshes,
		cacheLookups:     cacheLookups,
	}, nil
}

// Noop returns metrics that record nothing
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordResponder counts one responder call and its latency
func (m *Metrics) RecordResponder(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(attribute.String("outcome", outcome))
	m.responderCalls.Add(ctx, 1, attrs)
	m.responderLatency.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordSend counts one send attempt
func (m *Metrics) RecordSend(ctx context.Context, outcome string) {
	m.sends.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordRefresh counts one view refresh
func (m *Metrics) RecordRefresh(ctx context.Context, view string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.refreshes.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("view", view),
		attribute.String("result", result),
	))
}

// RecordCache counts one cache lookup
func (m *Metrics) RecordCache(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("result", result)))
}
