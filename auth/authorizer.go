package auth

import (
	"context"
	"fmt"
)

// Authorizer determines if an identity may access a route.
type Authorizer interface {
	// Authorize checks if the request is permitted.
	// Returns nil if authorized, or an error (typically *AuthzError) if denied.
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the authenticated identity.
	Subject *Identity

	// Route is the route pattern being accessed (e.g., "GET /backups").
	Route string

	// Requirement is the permission requirement declared by the route.
	Requirement Requirement
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	// Subject is the subject ID that was denied.
	Subject string

	// Route is the route that was denied access to.
	Route string

	// Requirement is the rendered requirement that was not met.
	Requirement string

	// Missing lists required groups the subject does not hold.
	Missing []string

	// Reason explains why access was denied.
	Reason string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q route=%q requirement=%q reason=%q",
		e.Subject, e.Route, e.Requirement, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthzError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// GroupAuthorizer grants access when the identity's permission groups
// satisfy the route requirement.
type GroupAuthorizer struct{}

// Name returns "permission_groups".
func (GroupAuthorizer) Name() string {
	return "permission_groups"
}

// Authorize checks req.Subject against req.Requirement.
func (GroupAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return &AuthzError{
			Route:       req.Route,
			Requirement: req.Requirement.String(),
			Reason:      "no identity provided",
		}
	}
	if req.Requirement.SatisfiedBy(req.Subject) {
		return nil
	}
	reason := "missing required permission group"
	if req.Requirement.Mode() == MatchAny {
		reason = "holds none of the accepted permission groups"
	}
	return &AuthzError{
		Subject:     req.Subject.SubjectID,
		Route:       req.Route,
		Requirement: req.Requirement.String(),
		Missing:     req.Requirement.Missing(req.Subject),
		Reason:      reason,
	}
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}

// Ensure GroupAuthorizer implements Authorizer
var _ Authorizer = GroupAuthorizer{}
