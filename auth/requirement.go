package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MatchMode selects how a multi-group requirement is evaluated.
type MatchMode int

const (
	// MatchAny is satisfied when the identity holds at least one group.
	MatchAny MatchMode = iota
	// MatchAll is satisfied only when the identity holds every group.
	MatchAll
)

// String returns the mode name.
func (m MatchMode) String() string {
	switch m {
	case MatchAny:
		return "any"
	case MatchAll:
		return "all"
	default:
		return "unknown"
	}
}

// Requirement is a route-declared set of permission groups.
// The zero value declares no requirement. Requirements are immutable.
type Requirement struct {
	groups []string
	mode   MatchMode
}

// NewRequirement builds a requirement. It rejects empty group lists,
// blank group names and unknown modes.
func NewRequirement(mode MatchMode, groups ...string) (Requirement, error) {
	if mode != MatchAny && mode != MatchAll {
		return Requirement{}, fmt.Errorf("auth: unknown match mode %d", mode)
	}
	if len(groups) == 0 {
		return Requirement{}, errors.New("auth: requirement needs at least one group")
	}
	set := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" {
			return Requirement{}, errors.New("auth: requirement group must not be blank")
		}
		if !slices.Contains(set, g) {
			set = append(set, g)
		}
	}
	slices.Sort(set)
	return Requirement{groups: set, mode: mode}, nil
}

// AnyOf returns a requirement satisfied by holding any of groups.
// It panics on invalid input; routes are declared at startup.
func AnyOf(groups ...string) Requirement {
	return mustRequirement(MatchAny, groups)
}

// AllOf returns a requirement satisfied only by holding all of groups.
// It panics on invalid input; routes are declared at startup.
func AllOf(groups ...string) Requirement {
	return mustRequirement(MatchAll, groups)
}

func mustRequirement(mode MatchMode, groups []string) Requirement {
	r, err := NewRequirement(mode, groups...)
	if err != nil {
		panic(err)
	}
	return r
}

// IsZero reports whether no requirement is declared.
func (r Requirement) IsZero() bool {
	return len(r.groups) == 0
}

// Groups returns a copy of the required groups, sorted.
func (r Requirement) Groups() []string {
	return slices.Clone(r.groups)
}

// Mode returns the match mode.
func (r Requirement) Mode() MatchMode {
	return r.mode
}

// SatisfiedBy checks the identity's groups against the requirement.
// A zero requirement is satisfied by any non-nil identity.
func (r Requirement) SatisfiedBy(id *Identity) bool {
	if id == nil {
		return false
	}
	if r.IsZero() {
		return true
	}
	if r.mode == MatchAll {
		return len(r.Missing(id)) == 0
	}
	return r.anyHeld(id)
}

// Missing returns the required groups the identity lacks.
func (r Requirement) Missing(id *Identity) []string {
	var missing []string
	for _, g := range r.groups {
		if !id.HasGroup(g) {
			missing = append(missing, g)
		}
	}
	return missing
}

func (r Requirement) anyHeld(id *Identity) bool {
	for _, g := range r.groups {
		if id.HasGroup(g) {
			return true
		}
	}
	return false
}

// String renders the requirement, e.g. "any(ADMIN,BACKUP_READ)".
func (r Requirement) String() string {
	if r.IsZero() {
		return "none"
	}
	return r.mode.String() + "(" + strings.Join(r.groups, ",") + ")"
}
