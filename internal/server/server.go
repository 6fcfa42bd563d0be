// Package server wires the HTTP routes: health probes, backup records and
// artifacts, the dashboard and permission groups. Every route except the
// health probes and metrics sits behind the auth gate.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/health"
	"github.com/jonwraymond/opsgate/internal/blob"
	"github.com/jonwraymond/opsgate/internal/dashboard"
	"github.com/jonwraymond/opsgate/internal/store"
	"github.com/jonwraymond/opsgate/observe"
)

// Configuration errors.
var (
	ErrNilStore     = errors.New("server: store is nil")
	ErrNilVerifier  = errors.New("server: verifier is nil")
	ErrNilBlobs     = errors.New("server: blob source is nil")
	ErrNilDashboard = errors.New("server: dashboard is nil")
)

// Config holds the server's collaborators.
type Config struct {
	Store     store.Store
	Blobs     blob.Source
	Dashboard *dashboard.Service
	Verifier  auth.TokenVerifier

	// Health backs /health, /healthz, /readyz and /health/{name}.
	// Default: an empty aggregator.
	Health *health.Aggregator

	// Observe instruments every route. Default: no-op.
	Observe *observe.Middleware

	// Metrics, when set, is served on GET /metrics without authentication.
	Metrics http.Handler

	Artifacts ArtifactConfig
}

// Route is one gated API route.
type Route struct {
	Pattern     string
	Requirement auth.Requirement
	Handler     http.HandlerFunc
}

// Server is the HTTP API.
type Server struct {
	store     store.Store
	dashboard *dashboard.Service
	artifacts *artifacts
	gate      *auth.Gate
	health    *health.Aggregator
	observe   *observe.Middleware
	metrics   http.Handler
	mux       *http.ServeMux
}

// New validates cfg and registers every route.
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Store == nil:
		return nil, ErrNilStore
	case cfg.Verifier == nil:
		return nil, ErrNilVerifier
	case cfg.Blobs == nil:
		return nil, ErrNilBlobs
	case cfg.Dashboard == nil:
		return nil, ErrNilDashboard
	}
	if cfg.Health == nil {
		cfg.Health = health.NewAggregator()
	}
	if cfg.Observe == nil {
		cfg.Observe = observe.NewMiddleware(nil, nil, nil)
	}

	s := &Server{
		store:     cfg.Store,
		dashboard: cfg.Dashboard,
		artifacts: newArtifacts(cfg.Blobs, cfg.Artifacts),
		health:    cfg.Health,
		observe:   cfg.Observe,
		metrics:   cfg.Metrics,
		mux:       http.NewServeMux(),
	}
	s.gate = auth.NewGate(cfg.Verifier, auth.WithDecisionHook(s.recordDecision))
	s.register()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Routes returns the gated route table. Requirements are built here, so a
// malformed one panics at startup.
func (s *Server) Routes() []Route {
	return []Route{
		{"GET /backups", auth.AnyOf(store.GroupBackupRead), s.listBackups},
		{"POST /backups", auth.AnyOf(store.GroupAdmin), s.createBackup},
		{"GET /backups/{id}", auth.AnyOf(store.GroupBackupRead), s.getBackup},
		{"GET /backups/{id}/download", auth.AllOf(store.GroupBackupRead, store.GroupBackupDownload), s.downloadBackup},
		{"GET /dashboard", auth.AnyOf(store.GroupDashboardView, store.GroupAdmin), s.getDashboard},
		{"GET /permissions/me", auth.Requirement{}, s.permissionsMe},
		{"GET /permissions", auth.AnyOf(store.GroupAdmin), s.listPermissions},
		{"GET /permissions/check", auth.Requirement{}, s.checkPermission},
		{"PUT /permissions/{group}", auth.AnyOf(store.GroupAdmin), s.putPermission},
	}
}

func (s *Server) register() {
	health.RegisterHandlers(s.mux, s.health, s.observe.Wrap)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
	for _, r := range s.Routes() {
		gate := s.gate.Authenticated(r.Pattern)
		if !r.Requirement.IsZero() {
			gate = s.gate.Require(r.Pattern, r.Requirement)
		}
		s.mux.Handle(r.Pattern, s.observe.Wrap(r.Pattern, gate(r.Handler)))
	}
}

// recordDecision feeds gate outcomes into metrics and the request log.
// Internal failure detail only ever reaches the debug log.
func (s *Server) recordDecision(ctx context.Context, d auth.Decision) {
	subject := ""
	if d.Identity != nil {
		subject = d.Identity.SubjectID
	}
	s.observe.Decision(ctx, d.Route, d.Outcome(), subject)
	if d.Err != nil {
		s.observe.Logger().Debug(ctx, "request rejected",
			observe.Field{Key: "requirement", Value: d.Requirement.String()},
			observe.Field{Key: "detail", Value: d.Err.Error()},
		)
	}
}

func (s *Server) logError(ctx context.Context, msg string, err error) {
	s.observe.Logger().Error(ctx, msg, observe.Field{Key: "error", Value: err.Error()})
}
