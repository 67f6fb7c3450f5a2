package quiz

import (
	"time"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/course"
)

type Choice struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Question is one teacher-contributed entry in a unit's pool.
type Question struct {
	ID        string   `json:"id"`
	UnitID    string   `json:"unit_id"`
	AuthorID  string   `json:"author_id"`
	Type      string   `json:"type"` // mcq_single, mcq_multi, true_false, short_word, numeric
	Prompt    string   `json:"prompt"`
	Choices   []Choice `json:"choices,omitempty"`
	AnswerKey []string `json:"answer_key,omitempty"`
	Points    float64  `json:"points"`
	CreatedAt int64    `json:"created_at,omitempty"`
}

// Attempt is immutable once submitted: one row per submission.
type Attempt struct {
	ID          string                 `json:"id"`
	StudentID   string                 `json:"student_id"`
	UnitID      string                 `json:"unit_id"`
	QuestionIDs []string               `json:"question_ids"`
	Answers     map[string]interface{} `json:"answers"`
	Score       float64                `json:"score"`
	MaxScore    float64                `json:"max_score"`
	Passed      bool                   `json:"passed"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Denial is a structured gating outcome the UI renders verbatim. It is not
// a system error; callers branch on Kind.
type Denial struct {
	Kind   apperr.Kind `json:"kind"`
	Reason string      `json:"reason"`
}

// Availability answers "may this student attempt this unit's quiz right now".
type Availability struct {
	Available         bool                  `json:"available"`
	Denial            *Denial               `json:"denial,omitempty"`
	IsLocked          bool                  `json:"is_locked"`
	LockReason        string                `json:"lock_reason,omitempty"`
	AttemptsTaken     int                   `json:"attempts_taken"`
	RemainingAttempts int                   `json:"remaining_attempts"`
	Deadline          course.DeadlineStatus `json:"deadline"`
}

// SubmitResult is the outcome of a submission: either a denial or a scored
// attempt.
type SubmitResult struct {
	Denial  *Denial  `json:"denial,omitempty"`
	Attempt *Attempt `json:"attempt,omitempty"`
}

// Analytics aggregates a unit pool's recorded attempts. Counts must match
// the underlying attempt set exactly.
type Analytics struct {
	UnitID         string  `json:"unit_id"`
	TotalAttempts  int     `json:"total_attempts"`
	PassedAttempts int     `json:"passed_attempts"`
	AverageScore   float64 `json:"average_score"`
	QuestionCount  int     `json:"question_count"`
}
