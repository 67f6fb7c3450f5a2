package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvance/edvance-lms/internal/lockout"
	"github.com/edvance/edvance-lms/internal/rbac"
)

func actorFrom(r *http.Request) lockout.Actor {
	id, _ := rbac.IdentityFromContext(r.Context())
	return lockout.Actor{
		ID:           id.Subject,
		Role:         id.Role,
		SectionID:    id.SectionID,
		DepartmentID: id.DepartmentID,
	}
}

// GET /locks?student=&unit=
func LockStatusHandler(workflow *lockout.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentID := r.URL.Query().Get("student")
		unitID := r.URL.Query().Get("unit")
		if studentID == "" || unitID == "" {
			http.Error(w, "student and unit required", http.StatusBadRequest)
			return
		}
		st, err := workflow.Status(r.Context(), studentID, unitID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// POST /locks/unlock  { "student_id": "...", "unit_id": "...", "note": "..." }
// Clears QuizLock and SecurityLock together; scope is checked inside the
// workflow against the actor's role.
func UnlockHandler(workflow *lockout.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
			UnitID    string `json:"unit_id"`
			Note      string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" || req.UnitID == "" {
			http.Error(w, "student_id and unit_id required", http.StatusBadRequest)
			return
		}
		if err := workflow.Unlock(r.Context(), actorFrom(r), req.StudentID, req.UnitID, req.Note); err != nil {
			writeError(w, err)
			return
		}
		st, err := workflow.Status(r.Context(), req.StudentID, req.UnitID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// POST /violations  { "student_id": "...", "unit_id": "...", "details": "..." }
func ReportViolationHandler(security *lockout.SecurityLockManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
			UnitID    string `json:"unit_id"`
			Details   string `json:"details"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" || req.UnitID == "" {
			http.Error(w, "student_id and unit_id required", http.StatusBadRequest)
			return
		}
		l, err := security.RecordViolation(r.Context(), req.StudentID, req.UnitID, req.Details)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// POST /unlock-requests  { "student_id": "...", "unit_id": "...", "reason": "..." }
func CreateUnlockRequestHandler(workflow *lockout.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			StudentID string `json:"student_id"`
			UnitID    string `json:"unit_id"`
			Reason    string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.StudentID == "" || req.UnitID == "" {
			http.Error(w, "student_id and unit_id required", http.StatusBadRequest)
			return
		}
		ur, err := workflow.SubmitRequest(r.Context(), actorFrom(r), req.StudentID, req.UnitID, req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ur)
	}
}

// GET /unlock-requests?status=pending
func ListUnlockRequestsHandler(workflow *lockout.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := lockout.RequestStatus(r.URL.Query().Get("status"))
		out, err := workflow.ListRequests(r.Context(), status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// POST /unlock-requests/{requestID}/review  { "action": "approve|reject", "note": "..." }
func ReviewUnlockRequestHandler(workflow *lockout.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		var req struct {
			Action string `json:"action"`
			Note   string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Action != "approve" && req.Action != "reject" {
			http.Error(w, "action must be approve or reject", http.StatusBadRequest)
			return
		}
		ur, err := workflow.Review(r.Context(), actorFrom(r), requestID, req.Action == "approve", req.Note)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ur)
	}
}
