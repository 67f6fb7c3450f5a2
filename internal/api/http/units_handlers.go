package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/edvance/edvance-lms/internal/config"
	"github.com/edvance/edvance-lms/internal/course"
	"github.com/edvance/edvance-lms/internal/rbac"
)

// GET /units?student=...&course=...
// Students always see their own progression; the student param is honored
// only for teacher-tier callers.
func ListUnitsHandler(resolver *course.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		studentID := r.URL.Query().Get("student")
		if id.Role == rbac.RoleStudent || studentID == "" {
			studentID = id.Subject
		}
		courseID := r.URL.Query().Get("course")
		if courseID == "" {
			http.Error(w, "course required", http.StatusBadRequest)
			return
		}
		views, err := resolver.ResolveUnits(r.Context(), studentID, courseID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

type unitRequest struct {
	ID          string `json:"id,omitempty"`
	CourseID    string `json:"course_id"`
	Number      int    `json:"unit_number"`
	Title       string `json:"title"`
	VideoCount  int    `json:"video_count"`
	HasDeadline bool   `json:"has_deadline"`
	Deadline    int64  `json:"deadline,omitempty"` // unix seconds
	Description string `json:"deadline_description,omitempty"`
	Strict      bool   `json:"strict_deadline"`
	WarningDays int    `json:"warning_days"`
}

// POST /units and PUT /units/{unitID}
func UpsertUnitHandler(store course.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req unitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.CourseID == "" || req.Number <= 0 {
			http.Error(w, "course_id and positive unit_number required", http.StatusBadRequest)
			return
		}
		if id := chi.URLParam(r, "unitID"); id != "" {
			req.ID = id
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		u := course.Unit{
			ID:         req.ID,
			CourseID:   req.CourseID,
			Number:     req.Number,
			Title:      req.Title,
			VideoCount: req.VideoCount,
			Deadline: course.DeadlineConfig{
				Enabled:     req.HasDeadline,
				Description: req.Description,
				Strict:      req.Strict,
				WarningDays: req.WarningDays,
			},
		}
		if req.HasDeadline && req.Deadline > 0 {
			u.Deadline.At = time.Unix(req.Deadline, 0).UTC()
		}
		if err := store.PutUnit(r.Context(), u); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

// POST /courses
// Omitted engine knobs fall back to the configured defaults, so a course
// created with a bare payload still enforces a limit and serves a bounded
// quiz.
func UpsertCourseHandler(store course.Store, defaults config.EngineConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c course.Course
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.Rule == "" {
			c.Rule = course.RuleBoth
		}
		if c.AttemptLimit <= 0 {
			c.AttemptLimit = defaults.AttemptLimit
		}
		if c.PassThreshold <= 0 {
			c.PassThreshold = defaults.PassThreshold
		}
		if c.QuizSize <= 0 {
			c.QuizSize = defaults.QuizSize
		}
		if err := store.PutCourse(r.Context(), c); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// POST /progress/video  { "unit_id": "..." }
func VideoWatchedHandler(resolver *course.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := rbac.IdentityFromContext(r.Context())
		var req struct {
			UnitID string `json:"unit_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UnitID == "" {
			http.Error(w, "unit_id required", http.StatusBadRequest)
			return
		}
		p, err := resolver.RecordVideoWatched(r.Context(), id.Subject, req.UnitID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
