package http

import (
	"encoding/json"
	"net/http"

	"github.com/edvance/edvance-lms/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto HTTP statuses. Business
// denials never reach here; they ride 200 responses as structured payloads.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindForbidden:
		status = http.StatusForbidden
	case apperr.KindConflictingUpdate, apperr.KindInvalidTransition:
		status = http.StatusConflict
	case apperr.KindDeadlineExpired, apperr.KindAttemptLimitReached, apperr.KindAlreadyLocked:
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{
		"kind":  kind.String(),
		"error": err.Error(),
	})
}
