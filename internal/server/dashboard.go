package server

import (
	"errors"
	"net/http"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/internal/dashboard"
)

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.For(r.Context(), auth.IdentityFromContext(r.Context()))
	if errors.Is(err, dashboard.ErrNoArea) {
		writeError(w, http.StatusForbidden, string(auth.KindPermissionDenied), "no area is assigned to the caller")
		return
	}
	if err != nil {
		s.logError(r.Context(), "dashboard failed", err)
		writeError(w, http.StatusInternalServerError, ReasonInternal, "could not load dashboard")
		return
	}
	writeData(w, view)
}
