package quiz

import "context"

// Store persists pool questions and attempts.
//
// CreateAttempt is the engine's critical section: it must admit the attempt
// only while the pre-insert count is below limit, and on the boundary
// attempt (the one reaching limit without a pass) set the quiz lock in the
// same atomic step. A submission past the limit returns
// apperr.AttemptLimitReached. The returned flag reports whether the lock
// was tripped.
type Store interface {
	PutQuestion(ctx context.Context, q Question) error
	ListQuestions(ctx context.Context, unitID string) ([]Question, error)

	CreateAttempt(ctx context.Context, a Attempt, limit int) (locked bool, err error)
	CountAttempts(ctx context.Context, studentID, unitID string) (int, error)
	ListStudentAttempts(ctx context.Context, studentID, unitID string) ([]Attempt, error)
	// ListUnitAttempts feeds pool analytics; ordered by submission time.
	ListUnitAttempts(ctx context.Context, unitID string) ([]Attempt, error)
}
