package lockout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/rbac"
)

// Actor is the privileged caller of an unlock operation.
type Actor struct {
	ID           string
	Role         rbac.Role
	SectionID    string
	DepartmentID string
}

// SubjectScope locates a student inside the org tree so the workflow can
// check an actor's reach. Backed by the user directory.
type SubjectScope struct {
	SectionID    string
	DepartmentID string
}

type Directory interface {
	StudentScope(ctx context.Context, studentID string) (SubjectScope, error)
}

// Workflow is the one component allowed to clear locks on behalf of people.
// Teacher-tier and above always clears QuizLock and SecurityLock together;
// clearing only one is a defect, not a feature.
type Workflow struct {
	store Store
	dir   Directory
	now   func() time.Time
	log   zerolog.Logger
}

func NewWorkflow(store Store, dir Directory, log zerolog.Logger) *Workflow {
	return &Workflow{
		store: store,
		dir:   dir,
		now:   time.Now,
		log:   log.With().Str("component", "unlock-workflow").Logger(),
	}
}

// Unlock clears both locks for the student/unit after checking the actor's
// scope. Idempotent with respect to lock state; always writes audit lines.
func (w *Workflow) Unlock(ctx context.Context, actor Actor, studentID, unitID, note string) error {
	if err := w.authorize(ctx, actor, studentID); err != nil {
		return err
	}
	now := w.now().UTC()
	entries := []AuditEntry{
		{
			ID: uuid.NewString(), LockType: LockTypeQuiz,
			StudentID: studentID, UnitID: unitID,
			Actor: actor.ID, ActorRole: actor.Role,
			Action: ActionUnlock, Note: note, CreatedAt: now,
		},
		{
			ID: uuid.NewString(), LockType: LockTypeSecurity,
			StudentID: studentID, UnitID: unitID,
			Actor: actor.ID, ActorRole: actor.Role,
			Action: ActionUnlock, Note: note, CreatedAt: now,
		},
	}
	if err := w.store.ClearBoth(ctx, studentID, unitID, entries); err != nil {
		return err
	}
	w.log.Info().
		Str("actor", actor.ID).Str("role", string(actor.Role)).
		Str("student", studentID).Str("unit", unitID).
		Msg("locks cleared")
	return nil
}

// SubmitRequest records a teacher's request for a higher-tier unlock.
func (w *Workflow) SubmitRequest(ctx context.Context, requestedBy Actor, studentID, unitID, reason string) (UnlockRequest, error) {
	r := UnlockRequest{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		UnitID:      unitID,
		RequestedBy: requestedBy.ID,
		Reason:      reason,
		Status:      RequestPending,
		CreatedAt:   w.now().UTC(),
	}
	if err := w.store.CreateRequest(ctx, r); err != nil {
		return UnlockRequest{}, err
	}
	return r, nil
}

// Review resolves a pending request. Approval applies the same dual-clear as
// a direct unlock; rejection leaves locks untouched. A request already in a
// terminal state fails with InvalidTransition and keeps its original outcome.
func (w *Workflow) Review(ctx context.Context, reviewer Actor, requestID string, approve bool, note string) (UnlockRequest, error) {
	r, err := w.store.GetRequest(ctx, requestID)
	if err != nil {
		return UnlockRequest{}, err
	}
	if err := w.authorize(ctx, reviewer, r.StudentID); err != nil {
		return UnlockRequest{}, err
	}
	if r.Status != RequestPending {
		return UnlockRequest{}, apperr.InvalidTransition("unlock request %s already %s", requestID, r.Status)
	}

	// On approval the clear lands before the status flip: a failed clear
	// leaves the request pending and retryable, never approved without its
	// unlock.
	if approve {
		if err := w.Unlock(ctx, reviewer, r.StudentID, r.UnitID, "approved unlock request "+requestID); err != nil {
			return UnlockRequest{}, err
		}
	}
	to := RequestRejected
	if approve {
		to = RequestApproved
	}
	return w.store.ResolveRequest(ctx, requestID, to, reviewer.ID, note)
}

func (w *Workflow) ListRequests(ctx context.Context, status RequestStatus) ([]UnlockRequest, error) {
	return w.store.ListRequests(ctx, status)
}

// Status reads both locks plus history for one student/unit.
func (w *Workflow) Status(ctx context.Context, studentID, unitID string) (LockStatus, error) {
	q, err := w.store.GetQuizLock(ctx, studentID, unitID)
	if err != nil {
		return LockStatus{}, err
	}
	s, err := w.store.GetSecurityLock(ctx, studentID, unitID)
	if err != nil {
		return LockStatus{}, err
	}
	h, err := w.store.ListAudit(ctx, studentID, unitID)
	if err != nil {
		return LockStatus{}, err
	}
	return LockStatus{Quiz: q, Security: s, History: h}, nil
}

// authorize checks the actor's unlock scope against the student's position.
// This is the single place role reach is decided.
func (w *Workflow) authorize(ctx context.Context, actor Actor, studentID string) error {
	scope := rbac.UnlockScope[actor.Role]
	switch scope {
	case rbac.ScopeGlobal:
		return nil
	case rbac.ScopeNone:
		return apperr.Forbidden("role %s may not unlock", actor.Role)
	}

	subject, err := w.dir.StudentScope(ctx, studentID)
	if err != nil {
		return err
	}
	switch scope {
	case rbac.ScopeSection:
		if subject.SectionID != "" && subject.SectionID == actor.SectionID {
			return nil
		}
		return apperr.Forbidden("student %s is outside %s's section", studentID, actor.ID)
	case rbac.ScopeDepartment:
		if subject.DepartmentID != "" && subject.DepartmentID == actor.DepartmentID {
			return nil
		}
		return apperr.Forbidden("student %s is outside %s's department", studentID, actor.ID)
	}
	return apperr.Forbidden("role %s may not unlock", actor.Role)
}
