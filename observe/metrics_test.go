package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*metricsImpl, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

// findMetric returns the metric with the given name, or nil.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", m.Data)
	}
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

// TestMetrics_RecordRequest verifies request counter and duration histogram.
func TestMetrics_RecordRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRequest(ctx, "GET", "GET /backups", 200, 12*time.Millisecond)
	m.RecordRequest(ctx, "GET", "GET /backups", 200, 8*time.Millisecond)
	m.RecordRequest(ctx, "GET", "GET /backups", 403, time.Millisecond)

	rm := collect(t, reader)

	requests := findMetric(rm, "http.server.requests")
	if requests == nil {
		t.Fatal("http.server.requests metric not found")
	}
	byClass := sumByAttr(t, requests, "http.response.status_class")
	if byClass["2xx"] != 2 || byClass["4xx"] != 1 {
		t.Errorf("unexpected counts by status class: %v", byClass)
	}

	duration := findMetric(rm, "http.server.duration_ms")
	if duration == nil {
		t.Fatal("http.server.duration_ms metric not found")
	}
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", duration.Data)
	}
	var count uint64
	var total float64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		total += dp.Sum
	}
	if count != 3 {
		t.Errorf("expected 3 observations, got %d", count)
	}
	if total != 21 {
		t.Errorf("expected total 21ms, got %v", total)
	}
}

// TestMetrics_RecordDecision verifies decisions are counted per outcome.
func TestMetrics_RecordDecision(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDecision(ctx, "GET /dashboard", "authorized")
	m.RecordDecision(ctx, "GET /dashboard", "PermissionDenied")
	m.RecordDecision(ctx, "GET /dashboard", "PermissionDenied")
	m.RecordDecision(ctx, "GET /backups", "MissingCredential")

	decisions := findMetric(collect(t, reader), "auth.decisions")
	if decisions == nil {
		t.Fatal("auth.decisions metric not found")
	}
	byOutcome := sumByAttr(t, decisions, "outcome")
	want := map[string]int64{"authorized": 1, "PermissionDenied": 2, "MissingCredential": 1}
	for k, v := range want {
		if byOutcome[k] != v {
			t.Errorf("outcome %s = %d, want %d", k, byOutcome[k], v)
		}
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 401: "4xx", 503: "5xx", 0: "unknown", 700: "unknown"}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}
