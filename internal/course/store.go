package course

import "context"

// Store is the persistence boundary for courses, units and progress.
// GetProgress returns a zero-valued Progress (not an error) when the student
// has no record yet for the unit.
type Store interface {
	PutCourse(ctx context.Context, c Course) error
	GetCourse(ctx context.Context, id string) (Course, error)

	PutUnit(ctx context.Context, u Unit) error
	GetUnit(ctx context.Context, id string) (Unit, error)
	// ListUnits returns the course's units ordered by unit number.
	ListUnits(ctx context.Context, courseID string) ([]Unit, error)

	GetProgress(ctx context.Context, studentID, unitID string) (Progress, error)
	ListProgress(ctx context.Context, studentID, courseID string) (map[string]Progress, error)
	// UpsertProgress writes p keyed on its pre-update Version; a concurrent
	// writer surfaces as apperr.ConflictingUpdate.
	UpsertProgress(ctx context.Context, p Progress) error
}
