package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records authorization-layer measurements.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: implementations must not panic; recording is best-effort.
type Metrics interface {
	// RecordAuthDecision records the outcome of a gate check for a policy.
	RecordAuthDecision(ctx context.Context, policy, outcome string)

	// RecordTokenEvent records a bootstrap token lifecycle event
	// (issued, consumed, rejected, swept).
	RecordTokenEvent(ctx context.Context, event string)

	// RecordRequest records a handled HTTP request.
	RecordRequest(ctx context.Context, method, path string, status int, duration time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	authDecisions metric.Int64Counter
	tokenEvents   metric.Int64Counter
	requestCount  metric.Int64Counter
	durationHist  metric.Float64Histogram
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	authDecisions, err := meter.Int64Counter(
		"auth.decisions.total",
		metric.WithDescription("Total number of gate authorization decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	tokenEvents, err := meter.Int64Counter(
		"bootstrap.token.events.total",
		metric.WithDescription("Total number of bootstrap token lifecycle events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	requestCount, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total number of handled HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.request.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		authDecisions: authDecisions,
		tokenEvents:   tokenEvents,
		requestCount:  requestCount,
		durationHist:  durationHist,
	}, nil
}

// RecordAuthDecision records the outcome of a gate check for a policy.
func (m *metricsImpl) RecordAuthDecision(ctx context.Context, policy, outcome string) {
	m.authDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("outcome", outcome),
	))
}

// RecordTokenEvent records a bootstrap token lifecycle event.
func (m *metricsImpl) RecordTokenEvent(ctx context.Context, event string) {
	m.tokenEvents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event", event),
	))
}

// RecordRequest records a handled HTTP request.
func (m *metricsImpl) RecordRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.requestCount.Add(ctx, 1, attrs)
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// nopMetrics is a metrics implementation that does nothing.
type nopMetrics struct{}

func (nopMetrics) RecordAuthDecision(context.Context, string, string)                {}
func (nopMetrics) RecordTokenEvent(context.Context, string)                          {}
func (nopMetrics) RecordRequest(context.Context, string, string, int, time.Duration) {}

// NopMetrics returns a Metrics that drops everything.
func NopMetrics() Metrics {
	return nopMetrics{}
}

// Ensure metricsImpl implements Metrics
var _ Metrics = (*metricsImpl)(nil)
