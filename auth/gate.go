package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// TokenVerifier validates a raw credential.
type TokenVerifier interface {
	Verify(credential string) (*Identity, error)
}

// Decision describes the outcome of one gate evaluation.
type Decision struct {
	// Route is the route the gate protects.
	Route string

	// Requirement is the requirement evaluated (zero if none).
	Requirement Requirement

	// Identity is set when verification succeeded, even if later denied.
	Identity *Identity

	// Err is nil when the request was authorized.
	Err error
}

// Outcome returns "authorized" or the rejection kind.
func (d Decision) Outcome() string {
	if d.Err == nil {
		return "authorized"
	}
	if kind, ok := KindOf(d.Err); ok {
		return string(kind)
	}
	return "error"
}

// DecisionHook observes gate decisions, e.g. for logging and metrics.
// Hooks run synchronously on the request goroutine and must not block.
type DecisionHook func(ctx context.Context, d Decision)

// GateConfig configures the gate.
type GateConfig struct {
	// HeaderName is the header containing the credential.
	// Default: "Authorization"
	HeaderName string

	// Scheme is the authorization scheme, matched case-insensitively.
	// Default: "Bearer"
	Scheme string
}

// GateOption customises a Gate.
type GateOption func(*Gate)

// WithAuthorizer replaces the default GroupAuthorizer.
func WithAuthorizer(a Authorizer) GateOption {
	return func(g *Gate) {
		if a != nil {
			g.authorizer = a
		}
	}
}

// WithDecisionHook registers a hook invoked after every decision.
func WithDecisionHook(hook DecisionHook) GateOption {
	return func(g *Gate) {
		if hook != nil {
			g.hooks = append(g.hooks, hook)
		}
	}
}

// WithGateConfig overrides the header and scheme defaults.
func WithGateConfig(cfg GateConfig) GateOption {
	return func(g *Gate) {
		if cfg.HeaderName != "" {
			g.config.HeaderName = cfg.HeaderName
		}
		if cfg.Scheme != "" {
			g.config.Scheme = cfg.Scheme
		}
	}
}

// Gate authenticates requests and enforces route permission requirements.
//
// Contract:
// - Concurrency: safe for concurrent use; holds no per-request state.
// - Ordering: extract, verify, activity check, attach, authorize.
// - Errors: every rejection carries a Kind; the next handler is never
//   invoked on failure and no identity leaks into its context.
type Gate struct {
	verifier   TokenVerifier
	authorizer Authorizer
	config     GateConfig
	hooks      []DecisionHook
}

// NewGate creates a gate around verifier.
func NewGate(verifier TokenVerifier, opts ...GateOption) *Gate {
	g := &Gate{
		verifier:   verifier,
		authorizer: GroupAuthorizer{},
		config: GateConfig{
			HeaderName: "Authorization",
			Scheme:     "Bearer",
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Credential extracts the bearer credential from r. An absent or blank
// header is MissingCredential; any other value that is not
// "<Scheme> <token>" is MalformedCredential.
func (g *Gate) Credential(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get(g.config.HeaderName))
	if header == "" {
		return "", newError(KindMissingCredential, nil)
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, g.config.Scheme) || token == "" {
		return "", newError(KindMalformedCredential,
			fmt.Errorf("%s header is not %q followed by a token", g.config.HeaderName, g.config.Scheme))
	}
	return token, nil
}

// Authenticate runs extraction, verification and the activity check.
func (g *Gate) Authenticate(r *http.Request) (*Identity, error) {
	credential, err := g.Credential(r)
	if err != nil {
		return nil, err
	}

	identity, err := g.verifier.Verify(credential)
	if err != nil {
		if _, ok := KindOf(err); ok {
			return nil, err
		}
		return nil, newError(KindMalformedCredential, err)
	}
	if identity == nil {
		return nil, newError(KindMalformedCredential, errors.New("verifier returned no identity"))
	}

	if !identity.IsActive {
		return nil, newError(KindAccountInactive, nil)
	}
	return identity.clone(), nil
}

// Check runs the full pipeline for route and req. On success it returns a
// context carrying the identity; on failure it returns the original ctx.
func (g *Gate) Check(r *http.Request, route string, req Requirement) (context.Context, error) {
	ctx := r.Context()
	identity, err := g.Authenticate(r)
	if err != nil {
		g.notify(ctx, Decision{Route: route, Requirement: req, Err: err})
		return ctx, err
	}

	authed := WithIdentity(ctx, identity)
	if !req.IsZero() {
		err = g.authorizer.Authorize(authed, &AuthzRequest{
			Subject:     identity,
			Route:       route,
			Requirement: req,
		})
		if err != nil {
			g.notify(ctx, Decision{Route: route, Requirement: req, Identity: identity, Err: err})
			return ctx, err
		}
	}

	g.notify(authed, Decision{Route: route, Requirement: req, Identity: identity})
	return authed, nil
}

// Require returns middleware that gates a route behind req.
// Pass the zero Requirement to require authentication only.
func (g *Gate) Require(route string, req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := g.Check(r, route, req)
			if err != nil {
				g.reject(w, err)
				return
			}
			if ctx.Err() != nil {
				// Client went away; nothing to forward.
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authenticated is shorthand for Require(route, Requirement{}).
func (g *Gate) Authenticated(route string) func(http.Handler) http.Handler {
	return g.Require(route, Requirement{})
}

func (g *Gate) notify(ctx context.Context, d Decision) {
	for _, hook := range g.hooks {
		hook(ctx, d)
	}
}

func (g *Gate) reject(w http.ResponseWriter, err error) {
	kind, ok := KindOf(err)
	if !ok {
		kind = KindMalformedCredential
	}
	if kind.Status() == http.StatusUnauthorized {
		challenge := g.config.Scheme
		if kind != KindMissingCredential {
			challenge += ` error="invalid_token"`
		}
		w.Header().Set("WWW-Authenticate", challenge)
	}
	WriteRejection(w, kind)
}

// Rejection is the JSON body written for rejected requests.
type Rejection struct {
	OK      bool   `json:"ok"`
	Reason  Kind   `json:"reason"`
	Message string `json:"message"`
}

// WriteRejection writes the structured rejection body for kind.
func WriteRejection(w http.ResponseWriter, kind Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.Status())
	_ = json.NewEncoder(w).Encode(Rejection{
		OK:      false,
		Reason:  kind,
		Message: kind.Message(),
	})
}
