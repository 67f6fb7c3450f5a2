package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvance/edvance-lms/internal/quiz"
	"github.com/edvance/edvance-lms/internal/rbac"
)

// GET /units/{unitID}/quiz/availability?student=
func QuizAvailabilityHandler(ledger *quiz.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		studentID := r.URL.Query().Get("student")
		if id.Role == rbac.RoleStudent || studentID == "" {
			studentID = id.Subject
		}
		unitID := chi.URLParam(r, "unitID")
		av, err := ledger.Availability(r.Context(), studentID, unitID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, av)
	}
}

// GET /units/{unitID}/quiz — the question set for the student's next
// attempt, answer keys stripped.
func StartQuizHandler(ledger *quiz.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		unitID := chi.URLParam(r, "unitID")
		qs, err := ledger.Start(r.Context(), id.Subject, unitID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

// POST /units/{unitID}/quiz/attempt  { "answers": {questionID: response} }
// Gating denials come back 200 with a denial payload: they are outcomes the
// UI renders, not request failures.
func SubmitAttemptHandler(ledger *quiz.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		unitID := chi.URLParam(r, "unitID")
		var req struct {
			Answers map[string]interface{} `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := ledger.Submit(r.Context(), id.Subject, unitID, req.Answers)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /units/{unitID}/questions
func AddQuestionHandler(ledger *quiz.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		var q quiz.Question
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q.UnitID = chi.URLParam(r, "unitID")
		q.AuthorID = id.Subject
		saved, err := ledger.AddQuestion(r.Context(), q)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// GET /pools/{unitID}/analytics
func PoolAnalyticsHandler(ledger *quiz.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unitID := chi.URLParam(r, "unitID")
		a, err := ledger.PoolAnalytics(r.Context(), unitID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
