package server

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/internal/store"
	"github.com/jonwraymond/opsgate/observe"
)

// IdentityView is the caller's identity as returned by GET /permissions/me.
type IdentityView struct {
	SubjectID        string     `json:"subjectId"`
	PermissionGroups []string   `json:"permissionGroups"`
	Role             string     `json:"role,omitempty"`
	Area             string     `json:"area,omitempty"`
	Fullname         string     `json:"fullname,omitempty"`
	Email            string     `json:"email,omitempty"`
	IsActive         bool       `json:"isActive"`
	IssuedAt         *time.Time `json:"issuedAt,omitempty"`
	ExpiresAt        time.Time  `json:"expiresAt"`
}

func newIdentityView(id *auth.Identity) IdentityView {
	groups := slices.Clone(id.PermissionGroups)
	slices.Sort(groups)
	if groups == nil {
		groups = []string{}
	}
	v := IdentityView{
		SubjectID:        id.SubjectID,
		PermissionGroups: groups,
		Role:             id.Role,
		Area:             id.Area,
		Fullname:         id.Fullname,
		Email:            id.Email,
		IsActive:         id.IsActive,
		ExpiresAt:        id.ExpiresAt,
	}
	if !id.IssuedAt.IsZero() {
		iat := id.IssuedAt
		v.IssuedAt = &iat
	}
	return v
}

// GrantView answers GET /permissions/check.
type GrantView struct {
	Group   string `json:"group"`
	Granted bool   `json:"granted"`
}

func (s *Server) permissionsMe(w http.ResponseWriter, r *http.Request) {
	writeData(w, newIdentityView(auth.IdentityFromContext(r.Context())))
}

func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.PermissionGroups(r.Context())
	if err != nil {
		s.logError(r.Context(), "list permission groups failed", err)
		writeError(w, http.StatusInternalServerError, ReasonInternal, "could not list permission groups")
		return
	}
	writeData(w, groups)
}

func (s *Server) checkPermission(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")
	if group == "" {
		writeError(w, http.StatusBadRequest, ReasonBadRequest, "group query parameter is required")
		return
	}
	id := auth.IdentityFromContext(r.Context())
	writeData(w, GrantView{Group: group, Granted: id.HasGroup(group)})
}

type groupInput struct {
	Description string `json:"description"`
}

func (s *Server) putPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in groupInput
	if !readJSON(w, r, &in) {
		return
	}

	g := store.PermissionGroup{
		ID:          strings.TrimSpace(r.PathValue("group")),
		Description: strings.TrimSpace(in.Description),
	}
	err := s.store.UpsertPermissionGroup(ctx, g)
	if errors.Is(err, store.ErrInvalidGroup) {
		writeError(w, http.StatusBadRequest, ReasonBadRequest, "group id is required")
		return
	}
	if err != nil {
		s.logError(ctx, "save permission group failed", err)
		writeError(w, http.StatusInternalServerError, ReasonInternal, "could not save permission group")
		return
	}

	s.observe.Logger().Info(ctx, "permission group saved",
		observe.Field{Key: "group", Value: g.ID},
		observe.Field{Key: "saved_by", Value: auth.SubjectFromContext(ctx)},
	)
	writeData(w, g)
}
