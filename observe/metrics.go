package observe

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records request and access-decision metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records a served request with its status and duration.
	RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration)

	// RecordDecision records one access decision for route.
	// outcome is "authorized" or a rejection reason.
	RecordDecision(ctx context.Context, route, outcome string)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	requests     metric.Int64Counter
	durationHist metric.Float64Histogram
	decisions    metric.Int64Counter
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of served HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"http.server.duration_ms",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	decisions, err := meter.Int64Counter(
		"auth.decisions",
		metric.WithDescription("Access gate decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		requests:     requests,
		durationHist: durationHist,
		decisions:    decisions,
	}, nil
}

// RecordRequest records request count and latency.
func (m *metricsImpl) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	opt := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
		attribute.String("http.response.status_class", statusClass(status)),
	)
	m.requests.Add(ctx, 1, opt)
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

// RecordDecision increments the decision counter.
func (m *metricsImpl) RecordDecision(ctx context.Context, route, outcome string) {
	m.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.route", route),
		attribute.String("outcome", outcome),
	))
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordRequest(context.Context, string, string, int, time.Duration) {}

func (m *noopMetrics) RecordDecision(context.Context, string, string) {}
