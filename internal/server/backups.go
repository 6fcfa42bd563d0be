package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/jonwraymond/opsgate/auth"
	"github.com/jonwraymond/opsgate/internal/blob"
	"github.com/jonwraymond/opsgate/internal/dashboard"
	"github.com/jonwraymond/opsgate/internal/store"
	"github.com/jonwraymond/opsgate/observe"
	"github.com/jonwraymond/opsgate/resilience"
)

// maxListLimit caps ?limit on GET /backups.
const maxListLimit = 1000

// callerScope returns the area the caller may read, "" for every area,
// writing a 403 itself when it returns false.
func callerScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	area, err := dashboard.Scope(auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusForbidden, string(auth.KindPermissionDenied), "no area is assigned to the caller")
		return "", false
	}
	return area, true
}

func (s *Server) listBackups(w http.ResponseWriter, r *http.Request) {
	scope, ok := callerScope(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := store.Filter{Area: q.Get("area")}
	if scope != "" {
		if f.Area != "" && f.Area != scope {
			writeError(w, http.StatusForbidden, string(auth.KindPermissionDenied), fmt.Sprintf("area %q is outside the caller's area", f.Area))
			return
		}
		f.Area = scope
	}

	if status := q.Get("status"); status != "" {
		f.Status = store.Status(status)
		if !f.Status.Valid() {
			writeError(w, http.StatusBadRequest, ReasonBadRequest, fmt.Sprintf("unknown status %q", status))
			return
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, ReasonBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		f.Limit = n
	}

	backups, err := s.store.ListBackups(r.Context(), f)
	if err != nil {
		s.logError(r.Context(), "list backups failed", err)
		writeError(w, http.StatusInternalServerError, ReasonInternal, "could not list backups")
		return
	}
	writeData(w, backups)
}

func (s *Server) createBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in store.Backup
	if !readJSON(w, r, &in) {
		return
	}

	b, err := s.store.CreateBackup(ctx, in)
	switch {
	case errors.Is(err, store.ErrInvalidBackup):
		writeError(w, http.StatusBadRequest, ReasonBadRequest, "name, area and a known status are required and sizeBytes must not be negative")
		return
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, ReasonConflict, fmt.Sprintf("backup %s already exists", in.ID))
		return
	case err != nil:
		s.logError(ctx, "create backup failed", err)
		writeError(w, http.StatusInternalServerError, ReasonInternal, "could not record backup")
		return
	}

	if err := s.dashboard.Invalidate(ctx, b.Area); err != nil {
		s.observe.Logger().Warn(ctx, "dashboard invalidation failed",
			observe.Field{Key: "area", Value: b.Area},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	s.observe.Logger().Info(ctx, "backup recorded",
		observe.Field{Key: "backup", Value: b.ID},
		observe.Field{Key: "area", Value: b.Area},
		observe.Field{Key: "status", Value: string(b.Status)},
		observe.Field{Key: "recorded_by", Value: auth.SubjectFromContext(ctx)},
	)
	writeJSON(w, http.StatusCreated, Envelope{OK: true, Data: b})
}

func (s *Server) getBackup(w http.ResponseWriter, r *http.Request) {
	b, ok := s.lookupBackup(w, r)
	if !ok {
		return
	}
	writeData(w, b)
}

// lookupBackup loads the {id} record, writing the error response itself
// when it returns false. Records outside the caller's area are reported as
// not found.
func (s *Server) lookupBackup(w http.ResponseWriter, r *http.Request) (store.Backup, bool) {
	scope, ok := callerScope(w, r)
	if !ok {
		return store.Backup{}, false
	}
	id := r.PathValue("id")
	b, err := s.store.GetBackup(r.Context(), id)
	if err == nil && scope != "" && b.Area != scope {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, ReasonNotFound, "backup not found")
		return store.Backup{}, false
	}
	if err != nil {
		s.logError(r.Context(), "get backup failed", err)
		writeError(w, http.StatusInternalServerError, ReasonInternal, "could not load backup")
		return store.Backup{}, false
	}
	return b, true
}

func (s *Server) downloadBackup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, ok := s.lookupBackup(w, r)
	if !ok {
		return
	}
	if b.Status != store.StatusCompleted || b.Location == "" {
		writeError(w, http.StatusConflict, ReasonBackupNotReady, fmt.Sprintf("backup is %s", b.Status))
		return
	}

	if err := s.artifacts.downloads.Acquire(ctx); err != nil {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, ReasonUnavailable, "too many concurrent downloads")
		return
	}
	defer s.artifacts.downloads.Release()

	info, err := s.artifacts.Stat(ctx, b.Location)
	if err != nil {
		s.artifactError(ctx, w, b, err)
		return
	}
	body, err := s.artifacts.Open(ctx, b.Location)
	if err != nil {
		s.artifactError(ctx, w, b, err)
		return
	}
	defer body.Close()

	h := w.Header()
	h.Set("Content-Type", info.ContentType)
	h.Set("Content-Length", strconv.FormatInt(info.Size, 10))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(b.Location)}))
	if b.Checksum != "" {
		h.Set("ETag", strconv.Quote(b.Checksum))
	}
	w.WriteHeader(http.StatusOK)

	n, err := io.Copy(w, body)
	if err != nil && ctx.Err() == nil {
		s.observe.Logger().Warn(ctx, "artifact stream interrupted",
			observe.Field{Key: "backup", Value: b.ID},
			observe.Field{Key: "written", Value: n},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
}

func (s *Server) artifactError(ctx context.Context, w http.ResponseWriter, b store.Backup, err error) {
	switch {
	case ctx.Err() != nil:
		return
	case errors.Is(err, blob.ErrNotFound):
		writeError(w, http.StatusNotFound, ReasonNotFound, "backup artifact not found")
	case errors.Is(err, resilience.ErrCircuitOpen):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, ReasonUnavailable, "artifact storage unavailable")
	default:
		s.observe.Logger().Error(ctx, "artifact read failed",
			observe.Field{Key: "backup", Value: b.ID},
			observe.Field{Key: "source", Value: s.artifacts.src.Name()},
			observe.Field{Key: "error", Value: err.Error()},
		)
		writeError(w, http.StatusBadGateway, ReasonUnavailable, "could not read backup artifact")
	}
}
