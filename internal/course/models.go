package course

import "time"

// CompletionRule is the per-course predicate deciding when a unit counts as
// completed for progression purposes.
type CompletionRule string

const (
	RuleVideos CompletionRule = "videos" // all videos watched
	RuleQuiz   CompletionRule = "quiz"   // quiz passed
	RuleBoth   CompletionRule = "both"   // videos watched AND quiz passed
)

type Course struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	SectionID     string         `json:"section_id"`
	DepartmentID  string         `json:"department_id"`
	Rule          CompletionRule `json:"completion_rule"`
	AttemptLimit  int            `json:"attempt_limit"`
	PassThreshold float64        `json:"pass_threshold"`
	QuizSize      int            `json:"quiz_size"`
	CreatedAt     int64          `json:"created_at,omitempty"`
}

// DeadlineConfig is the deadline portion of a unit. When Enabled is false
// every other field is ignored.
type DeadlineConfig struct {
	Enabled     bool      `json:"enabled"`
	At          time.Time `json:"at,omitempty"`
	Description string    `json:"description,omitempty"`
	Strict      bool      `json:"strict"`
	WarningDays int       `json:"warning_days"`
}

type Unit struct {
	ID         string         `json:"id"`
	CourseID   string         `json:"course_id"`
	Number     int            `json:"unit_number"`
	Title      string         `json:"title"`
	VideoCount int            `json:"video_count"`
	Deadline   DeadlineConfig `json:"deadline"`
	CreatedAt  int64          `json:"created_at,omitempty"`
}

// Progress is the per (student, unit) completion record. Version backs
// optimistic-concurrency updates in the stores.
type Progress struct {
	StudentID     string    `json:"student_id"`
	UnitID        string    `json:"unit_id"`
	CourseID      string    `json:"course_id"`
	VideosWatched int       `json:"videos_watched"`
	QuizPassed    bool      `json:"quiz_passed"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"-"`
}

// UnitState is what the resolver reports per unit.
type UnitState string

const (
	StateUnlocked UnitState = "unlocked"
	StateLocked   UnitState = "locked"
	// StateLockedOut marks a strict-deadline unit whose deadline passed
	// before the student completed it. Quiz start is blocked, but earned
	// progress stays visible.
	StateLockedOut UnitState = "locked-out"
)

type UnitView struct {
	Unit              Unit           `json:"unit"`
	State             UnitState      `json:"state"`
	CompletionPercent float64        `json:"completion_percent"`
	Completed         bool           `json:"completed"`
	Deadline          DeadlineStatus `json:"deadline"`
}
