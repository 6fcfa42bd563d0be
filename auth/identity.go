package auth

import (
	"slices"
	"time"
)

// Identity is the trusted view of a caller, produced only by a successful
// token verification and scoped to the request it was attached to.
type Identity struct {
	// SubjectID is the opaque unique identifier of the principal (sub claim).
	SubjectID string

	// PermissionGroups are the groups granted at token-issue time.
	// Unique, order irrelevant.
	PermissionGroups []string

	// Role is informational.
	Role string

	// Area is the organisational area of the principal.
	Area string

	// Fullname is informational.
	Fullname string

	// Email is informational.
	Email string

	// IsActive reports whether the principal is enabled.
	IsActive bool

	// IssuedAt is when the token was issued (zero if absent).
	IssuedAt time.Time

	// ExpiresAt is when the token stops being valid.
	ExpiresAt time.Time
}

// HasGroup checks if the identity holds a specific permission group.
func (id *Identity) HasGroup(group string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.PermissionGroups, group)
}

// clone returns a deep copy so callers never share group slices.
func (id *Identity) clone() *Identity {
	c := *id
	c.PermissionGroups = slices.Clone(id.PermissionGroups)
	return &c
}
