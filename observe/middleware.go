package observe

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in and out of the server.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps HTTP handlers with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a handler safe for concurrent use.
//   - Context: the wrapped handler sees a context carrying the span and RequestData.
//   - Ownership: request and response bodies are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
// Nil components are replaced with no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = &noopMetrics{}
	}
	if logger == nil {
		logger = &noopLogger{}
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap instruments next, which serves the given route pattern.
func (m *Middleware) Wrap(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := WithRequestData(r.Context(), &RequestData{
			RequestID:  requestID,
			Method:     r.Method,
			Path:       r.URL.Path,
			Route:      route,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
		ctx, span := m.tracer.StartSpan(ctx, route, r)

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()

		next.ServeHTTP(sw, r.WithContext(ctx))

		duration := time.Since(start)
		status := sw.Status()

		m.tracer.EndSpan(span, status)
		m.metrics.RecordRequest(ctx, r.Method, route, status, duration)

		fields := []Field{
			{Key: "status", Value: status},
			{Key: "bytes", Value: sw.bytes},
			{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000},
		}
		if status >= http.StatusInternalServerError {
			m.logger.Error(ctx, "request failed", fields...)
		} else {
			m.logger.Info(ctx, "request completed", fields...)
		}
	})
}

// Decision records an access decision on the request in ctx.
// subject is empty when no identity was established.
func (m *Middleware) Decision(ctx context.Context, route, outcome, subject string) {
	if subject != "" {
		SetSubject(ctx, subject)
	}
	m.metrics.RecordDecision(ctx, route, outcome)
	m.logger.Debug(ctx, "access decision", Field{Key: "outcome", Value: outcome})
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}

// statusWriter captures the response status and size.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Status returns the written status, or 200 if the handler wrote nothing.
func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
