package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Error reasons written alongside the auth rejection kinds.
const (
	ReasonNotFound       = "NotFound"
	ReasonBackupNotReady = "BackupNotReady"
	ReasonBadRequest     = "BadRequest"
	ReasonConflict       = "Conflict"
	ReasonUnavailable    = "Unavailable"
	ReasonInternal       = "Internal"
)

// Envelope is the body of every JSON response outside the health routes.
type Envelope struct {
	OK      bool   `json:"ok"`
	Data    any    `json:"data,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, code int, reason, message string) {
	writeJSON(w, code, Envelope{OK: false, Reason: reason, Message: message})
}

// readJSON decodes a single JSON object from the request body into v,
// writing a 400 itself when it returns false.
func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ReasonBadRequest, fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, ReasonBadRequest, "body must be a JSON object: "+err.Error())
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, ReasonBadRequest, "body must contain a single JSON object")
		return false
	}
	return true
}
