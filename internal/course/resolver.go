package course

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvance/edvance-lms/internal/apperr"
)

// Resolver computes, per student and course, which units are actionable.
// It is read-only: progress is mutated through RecordVideoWatched /
// MarkQuizPassed, never here.
type Resolver struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewResolver(store Store, log zerolog.Logger) *Resolver {
	return &Resolver{store: store, now: time.Now, log: log.With().Str("component", "resolver").Logger()}
}

// WithClock overrides the resolver's clock. Tests use this to pin "now".
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// firstUnitAlwaysUnlocked is the bootstrap rule: the first unit of any
// course is unlocked for every student, with no precondition. Load-bearing
// for brand-new students; do not fold it into the completion predicate.
const firstUnitAlwaysUnlocked = true

// ResolveUnits returns the course's units in order, each tagged with its
// state for the given student.
func (r *Resolver) ResolveUnits(ctx context.Context, studentID, courseID string) ([]UnitView, error) {
	c, err := r.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	units, err := r.store.ListUnits(ctx, courseID)
	if err != nil {
		return nil, err
	}
	progress, err := r.store.ListProgress(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	views := make([]UnitView, 0, len(units))
	prevCompleted := firstUnitAlwaysUnlocked
	for _, u := range units {
		p := progress[u.ID]
		completed := Completed(c.Rule, u, p)
		dl := EvaluateDeadline(u.Deadline, now)

		state := StateLocked
		if prevCompleted {
			state = StateUnlocked
			if dl.Strict && dl.IsExpired && !completed {
				state = StateLockedOut
			}
		}

		views = append(views, UnitView{
			Unit:              u,
			State:             state,
			Completed:         completed,
			CompletionPercent: completionPercent(c.Rule, u, p),
			Deadline:          dl,
		})
		prevCompleted = completed
	}
	return views, nil
}

// ResolveUnit evaluates a single unit for the student, walking the course
// order so the sequential rule holds. Callers use it as the "is this unit
// actionable" gate.
func (r *Resolver) ResolveUnit(ctx context.Context, studentID, unitID string) (UnitView, Course, error) {
	u, err := r.store.GetUnit(ctx, unitID)
	if err != nil {
		return UnitView{}, Course{}, err
	}
	c, err := r.store.GetCourse(ctx, u.CourseID)
	if err != nil {
		return UnitView{}, Course{}, err
	}
	views, err := r.ResolveUnits(ctx, studentID, u.CourseID)
	if err != nil {
		return UnitView{}, Course{}, err
	}
	for _, v := range views {
		if v.Unit.ID == unitID {
			return v, c, nil
		}
	}
	return UnitView{}, Course{}, apperr.NotFound("unit %s not in course %s", unitID, u.CourseID)
}

// RecordVideoWatched bumps the watched-video counter for the unit, clamped
// to the unit's video count. Concurrent updates retry on version conflict.
func (r *Resolver) RecordVideoWatched(ctx context.Context, studentID, unitID string) (Progress, error) {
	u, err := r.store.GetUnit(ctx, unitID)
	if err != nil {
		return Progress{}, err
	}

	var p Progress
	for attempt := 0; ; attempt++ {
		p, err = r.store.GetProgress(ctx, studentID, unitID)
		if err != nil {
			return Progress{}, err
		}
		p.StudentID = studentID
		p.UnitID = unitID
		p.CourseID = u.CourseID
		if p.VideosWatched < u.VideoCount {
			p.VideosWatched++
		}
		p.UpdatedAt = r.now()

		err = r.store.UpsertProgress(ctx, p)
		if err == nil {
			return p, nil
		}
		if apperr.KindOf(err) != apperr.KindConflictingUpdate || attempt >= maxConflictRetries {
			return Progress{}, err
		}
		r.log.Debug().Str("student", studentID).Str("unit", unitID).Msg("progress conflict, retrying")
	}
}

// MarkQuizPassed records a quiz pass in the student's progress. Invoked by
// the attempt ledger after a passing submission.
func (r *Resolver) MarkQuizPassed(ctx context.Context, studentID, unitID string) error {
	u, err := r.store.GetUnit(ctx, unitID)
	if err != nil {
		return err
	}
	for attempt := 0; ; attempt++ {
		p, err := r.store.GetProgress(ctx, studentID, unitID)
		if err != nil {
			return err
		}
		if p.QuizPassed {
			return nil
		}
		p.StudentID = studentID
		p.UnitID = unitID
		p.CourseID = u.CourseID
		p.QuizPassed = true
		p.UpdatedAt = r.now()

		err = r.store.UpsertProgress(ctx, p)
		if err == nil {
			return nil
		}
		if apperr.KindOf(err) != apperr.KindConflictingUpdate || attempt >= maxConflictRetries {
			return err
		}
	}
}

const maxConflictRetries = 3

// Completed applies the course's completion rule to a unit's progress.
func Completed(rule CompletionRule, u Unit, p Progress) bool {
	videosDone := u.VideoCount == 0 || p.VideosWatched >= u.VideoCount
	switch rule {
	case RuleVideos:
		return videosDone
	case RuleQuiz:
		return p.QuizPassed
	default: // RuleBoth
		return videosDone && p.QuizPassed
	}
}

func completionPercent(rule CompletionRule, u Unit, p Progress) float64 {
	videoFrac := 1.0
	if u.VideoCount > 0 {
		videoFrac = float64(p.VideosWatched) / float64(u.VideoCount)
		if videoFrac > 1 {
			videoFrac = 1
		}
	}
	quizFrac := 0.0
	if p.QuizPassed {
		quizFrac = 1
	}
	switch rule {
	case RuleVideos:
		return 100 * videoFrac
	case RuleQuiz:
		return 100 * quizFrac
	default:
		return 100 * (videoFrac + quizFrac) / 2
	}
}
