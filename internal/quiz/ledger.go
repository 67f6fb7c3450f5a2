package quiz

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/course"
	"github.com/edvance/edvance-lms/internal/grading"
	"github.com/edvance/edvance-lms/internal/lockout"
)

// Ledger gates and records quiz attempts. It re-reads lock and progress
// state on every call; no gating decision survives past a request.
type Ledger struct {
	store    Store
	resolver *course.Resolver
	quiz     *lockout.QuizLockManager
	security *lockout.SecurityLockManager
	grader   grading.Grader
	now      func() time.Time
	log      zerolog.Logger
}

func NewLedger(store Store, resolver *course.Resolver, quiz *lockout.QuizLockManager, security *lockout.SecurityLockManager, log zerolog.Logger) *Ledger {
	return &Ledger{
		store:    store,
		resolver: resolver,
		quiz:     quiz,
		security: security,
		grader:   grading.NewGrader(),
		now:      time.Now,
		log:      log.With().Str("component", "attempt-ledger").Logger(),
	}
}

// WithClock pins the ledger's clock; tests use it for deadline boundaries.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Availability reports whether the student may attempt the unit's quiz,
// with a renderable reason when not. The check order matches Submit.
func (l *Ledger) Availability(ctx context.Context, studentID, unitID string) (Availability, error) {
	view, crs, err := l.resolver.ResolveUnit(ctx, studentID, unitID)
	if err != nil {
		return Availability{}, err
	}
	taken, err := l.store.CountAttempts(ctx, studentID, unitID)
	if err != nil {
		return Availability{}, err
	}

	out := Availability{
		AttemptsTaken:     taken,
		RemainingAttempts: max(0, crs.AttemptLimit-taken),
		Deadline:          view.Deadline,
	}

	denial, lockState, err := l.gate(ctx, studentID, unitID, view, crs, taken)
	if err != nil {
		return Availability{}, err
	}
	out.IsLocked = lockState.locked
	out.LockReason = lockState.reason
	if denial != nil {
		out.Denial = denial
		return out, nil
	}
	out.Available = true
	return out, nil
}

// Start selects the question set for the student's next attempt, with
// answer keys stripped. Selection is deterministic per attempt index, so
// Submit regrades exactly the set that was shown.
func (l *Ledger) Start(ctx context.Context, studentID, unitID string) ([]Question, error) {
	view, crs, err := l.resolver.ResolveUnit(ctx, studentID, unitID)
	if err != nil {
		return nil, err
	}
	taken, err := l.store.CountAttempts(ctx, studentID, unitID)
	if err != nil {
		return nil, err
	}
	denial, _, err := l.gate(ctx, studentID, unitID, view, crs, taken)
	if err != nil {
		return nil, err
	}
	if denial != nil {
		return nil, apperr.New(denial.Kind, "%s", denial.Reason)
	}

	pool, err := l.store.ListQuestions(ctx, unitID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, apperr.NotFound("unit %s has no quiz pool", unitID)
	}
	qs := SelectQuestions(pool, crs.QuizSize, AttemptSeed(studentID, unitID, taken))
	return StripAnswerKeys(qs), nil
}

// Submit grades the answers and records the attempt. Gating failures come
// back as a structured denial inside the result, not as an error; only
// system faults return a non-nil error.
func (l *Ledger) Submit(ctx context.Context, studentID, unitID string, answers map[string]interface{}) (SubmitResult, error) {
	view, crs, err := l.resolver.ResolveUnit(ctx, studentID, unitID)
	if err != nil {
		return SubmitResult{}, err
	}
	taken, err := l.store.CountAttempts(ctx, studentID, unitID)
	if err != nil {
		return SubmitResult{}, err
	}
	denial, _, err := l.gate(ctx, studentID, unitID, view, crs, taken)
	if err != nil {
		return SubmitResult{}, err
	}
	if denial != nil {
		return SubmitResult{Denial: denial}, nil
	}

	pool, err := l.store.ListQuestions(ctx, unitID)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(pool) == 0 {
		return SubmitResult{}, apperr.NotFound("unit %s has no quiz pool", unitID)
	}
	qs := SelectQuestions(pool, crs.QuizSize, AttemptSeed(studentID, unitID, taken))

	attempt := Attempt{
		ID:        uuid.NewString(),
		StudentID: studentID,
		UnitID:    unitID,
		Answers:   answers,
		CreatedAt: l.now().UTC(),
	}
	for _, q := range qs {
		attempt.QuestionIDs = append(attempt.QuestionIDs, q.ID)
		attempt.MaxScore += q.Points
		resp, ok := answers[q.ID]
		if !ok {
			continue
		}
		res, err := l.grader.Grade(ctx, grading.Q{Type: q.Type, Points: q.Points, AnswerKey: q.AnswerKey}, resp)
		if err != nil {
			continue
		}
		attempt.Score += res.Points
	}
	if attempt.MaxScore > 0 {
		attempt.Passed = attempt.Score/attempt.MaxScore >= crs.PassThreshold
	}

	locked, err := l.store.CreateAttempt(ctx, attempt, crs.AttemptLimit)
	if err != nil {
		// A concurrent submission may have consumed the final slot between
		// our count read and the conditional insert.
		if apperr.KindOf(err) == apperr.KindAttemptLimitReached {
			return SubmitResult{Denial: &Denial{
				Kind:   apperr.KindAttemptLimitReached,
				Reason: deniedAttemptLimit,
			}}, nil
		}
		return SubmitResult{}, err
	}
	if locked {
		l.log.Info().Str("student", studentID).Str("unit", unitID).Msg("attempt limit reached, quiz locked")
	}
	if attempt.Passed {
		if err := l.resolver.MarkQuizPassed(ctx, studentID, unitID); err != nil {
			return SubmitResult{}, err
		}
	}
	return SubmitResult{Attempt: &attempt}, nil
}

// Denial reasons the UI renders verbatim.
const (
	deniedUnitLocked      = "Locked: complete the previous unit first"
	deniedQuizLocked      = "Locked: attempt limit exceeded — contact your teacher"
	deniedSecurityLocked  = "Locked: security violations reported — contact your teacher"
	deniedDeadlineExpired = "Deadline passed: this unit can no longer be attempted"
	deniedAttemptLimit    = "No attempts remaining"
)

type lockSummary struct {
	locked bool
	reason string
}

// gate applies the precondition chain: sequential unlock,
// then locks, then strict deadline, then attempt count. First failure wins.
func (l *Ledger) gate(ctx context.Context, studentID, unitID string, view course.UnitView, crs course.Course, taken int) (*Denial, lockSummary, error) {
	var ls lockSummary

	if view.State == course.StateLocked {
		return &Denial{Kind: apperr.KindForbidden, Reason: deniedUnitLocked}, ls, nil
	}

	ql, err := l.quiz.Status(ctx, studentID, unitID)
	if err != nil {
		return nil, ls, err
	}
	if ql.Locked {
		ls = lockSummary{locked: true, reason: ql.Reason}
		return &Denial{Kind: apperr.KindAlreadyLocked, Reason: deniedQuizLocked}, ls, nil
	}
	sl, err := l.security.Status(ctx, studentID, unitID)
	if err != nil {
		return nil, ls, err
	}
	if sl.Locked {
		ls = lockSummary{locked: true, reason: sl.Reason}
		return &Denial{Kind: apperr.KindAlreadyLocked, Reason: deniedSecurityLocked}, ls, nil
	}

	if view.Deadline.Strict && view.Deadline.IsExpired {
		return &Denial{Kind: apperr.KindDeadlineExpired, Reason: deniedDeadlineExpired}, ls, nil
	}

	if taken >= crs.AttemptLimit {
		return &Denial{Kind: apperr.KindAttemptLimitReached, Reason: deniedAttemptLimit}, ls, nil
	}
	return nil, ls, nil
}

// ListStudentAttempts exposes a student's attempt history for dashboards.
func (l *Ledger) ListStudentAttempts(ctx context.Context, studentID, unitID string) ([]Attempt, error) {
	return l.store.ListStudentAttempts(ctx, studentID, unitID)
}

// AddQuestion contributes a question to the unit's pool.
func (l *Ledger) AddQuestion(ctx context.Context, q Question) (Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if q.Points <= 0 {
		q.Points = 1
	}
	if q.Type == "" {
		return Question{}, fmt.Errorf("question type required")
	}
	if err := l.store.PutQuestion(ctx, q); err != nil {
		return Question{}, err
	}
	return q, nil
}
