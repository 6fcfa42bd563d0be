// Package observe provides observability primitives for HTTP services.
//
// It wires OpenTelemetry tracing and metrics with a slog-backed structured
// logger. Middleware wraps each route with a server span, request metrics,
// a request ID and a completion log line; request attributes stored in the
// context are stamped onto every log record emitted while serving it.
package observe
