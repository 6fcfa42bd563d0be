package observe

import (
	"context"
	"log/slog"
)

type requestDataKey struct{}

// RequestData carries per-request attributes stamped onto every log record
// emitted with the request context.
//
// The middleware owns the value; later stages (e.g. the auth gate hook)
// fill in Route and Subject on the same pointer.
type RequestData struct {
	RequestID  string
	Method     string
	Path       string
	Route      string
	RemoteAddr string
	UserAgent  string
	Subject    string
}

// WithRequestData attaches data to ctx.
func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

// RequestDataFromContext returns the request data attached to ctx, or nil.
func RequestDataFromContext(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, _ := ctx.Value(requestDataKey{}).(*RequestData)
	return rd
}

// SetSubject records the authenticated subject on the request data in ctx.
// It is a no-op outside an instrumented request.
func SetSubject(ctx context.Context, subject string) {
	if rd := RequestDataFromContext(ctx); rd != nil {
		rd.Subject = subject
	}
}

// contextHandler stamps request attributes from the context onto records.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if rd := RequestDataFromContext(ctx); rd != nil {
		attrs := []any{
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("path", rd.Path),
		}
		if rd.Route != "" {
			attrs = append(attrs, slog.String("route", rd.Route))
		}
		r.AddAttrs(slog.Group("req", attrs...))
		if rd.Subject != "" {
			r.AddAttrs(slog.Group("auth", slog.String("subject", rd.Subject)))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
