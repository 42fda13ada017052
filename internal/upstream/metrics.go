package upstream

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/coolroute/coolroute/internal/upstream"

// SourceMetrics holds metrics for external source calls. One instance is
// shared by every client; the source name rides along as an attribute.
type SourceMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	breakerOpens    metric.Int64Counter
}

// NewSourceMetrics creates metrics for monitoring external source calls.
func NewSourceMetrics() (*SourceMetrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"source.request.duration",
		metric.WithDescription("Duration of source requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"source.request.total",
		metric.WithDescription("Total number of source requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	breakerOpens, err := meter.Int64Counter(
		"source.breaker.open",
		metric.WithDescription("Number of circuit breaker open transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &SourceMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		breakerOpens:    breakerOpens,
	}, nil
}

// RecordRequest records one source call including retries.
func (m *SourceMetrics) RecordRequest(source string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("source.name", source),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Use background context for metrics to avoid context cancellation issues
	ctx := context.TODO()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBreakerOpen records a circuit breaker opening for a source.
func (m *SourceMetrics) RecordBreakerOpen(source string) {
	if m == nil {
		return
	}

	m.breakerOpens.Add(context.TODO(), 1, metric.WithAttributes(
		attribute.String("source.name", source),
	))
}
