package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLoggerContract_With(t *testing.T) {
	logger := NopLogger()
	if logger.With(Field{Key: "k", Value: "v"}) == nil {
		t.Fatalf("With should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	metrics.RecordRequest(context.Background(), "GET", "GET /x", 200, 10*time.Millisecond)
	metrics.RecordDecision(context.Background(), "GET /x", "authorized")
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), "GET /x", httptest.NewRequest(http.MethodGet, "/x", nil))
	tracer.EndSpan(span, http.StatusOK)
}

func TestSetSubject_OutsideRequest(t *testing.T) {
	SetSubject(context.Background(), "user-17")
	if RequestDataFromContext(context.Background()) != nil {
		t.Error("expected no request data")
	}
}
