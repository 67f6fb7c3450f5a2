package lockout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/rbac"
)

const maxConflictRetries = 3

// ReasonAttemptLimit is the canonical reason written when the attempt
// ledger trips the quiz lock.
const ReasonAttemptLimit = "attempt limit exceeded"

// QuizLockManager owns the attempt-limit lock.
type QuizLockManager struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewQuizLockManager(store Store, log zerolog.Logger) *QuizLockManager {
	return &QuizLockManager{store: store, now: time.Now, log: log.With().Str("component", "quizlock").Logger()}
}

func (m *QuizLockManager) Status(ctx context.Context, studentID, unitID string) (QuizLock, error) {
	return m.store.GetQuizLock(ctx, studentID, unitID)
}

func (m *QuizLockManager) Lock(ctx context.Context, studentID, unitID, reason string) error {
	return retryConflict(m.log, func() error {
		l, err := m.store.GetQuizLock(ctx, studentID, unitID)
		if err != nil {
			return err
		}
		now := m.now().UTC()
		l.Locked = true
		l.Reason = reason
		l.LockedAt = &now
		return m.store.UpsertQuizLock(ctx, l, auditEntry(LockTypeQuiz, studentID, unitID, "system", "", ActionLock, reason, now))
	})
}

// Unlock is idempotent: unlocking an already-unlocked record succeeds and
// still appends an audit entry, so the action itself is on record.
func (m *QuizLockManager) Unlock(ctx context.Context, studentID, unitID, actor string, role rbac.Role, note string) error {
	return retryConflict(m.log, func() error {
		l, err := m.store.GetQuizLock(ctx, studentID, unitID)
		if err != nil {
			return err
		}
		now := m.now().UTC()
		if !l.Locked {
			m.log.Info().Str("student", studentID).Str("unit", unitID).Msg("unlock of already-unlocked quiz lock")
		}
		l.Locked = false
		l.Reason = ""
		l.LockedAt = nil
		return m.store.UpsertQuizLock(ctx, l, auditEntry(LockTypeQuiz, studentID, unitID, actor, role, ActionUnlock, note, now))
	})
}

// SecurityLockManager owns the violation lock. Violations accumulate and
// auto-lock once the threshold is crossed.
type SecurityLockManager struct {
	store     Store
	threshold int
	now       func() time.Time
	log       zerolog.Logger
}

func NewSecurityLockManager(store Store, threshold int, log zerolog.Logger) *SecurityLockManager {
	if threshold <= 0 {
		threshold = 3
	}
	return &SecurityLockManager{
		store:     store,
		threshold: threshold,
		now:       time.Now,
		log:       log.With().Str("component", "securitylock").Logger(),
	}
}

func (m *SecurityLockManager) Status(ctx context.Context, studentID, unitID string) (SecurityLock, error) {
	return m.store.GetSecurityLock(ctx, studentID, unitID)
}

func (m *SecurityLockManager) Lock(ctx context.Context, studentID, unitID, reason string) error {
	return retryConflict(m.log, func() error {
		l, err := m.store.GetSecurityLock(ctx, studentID, unitID)
		if err != nil {
			return err
		}
		now := m.now().UTC()
		l.Locked = true
		l.Reason = reason
		l.LockedAt = &now
		return m.store.UpsertSecurityLock(ctx, l, auditEntry(LockTypeSecurity, studentID, unitID, "system", "", ActionLock, reason, now))
	})
}

func (m *SecurityLockManager) Unlock(ctx context.Context, studentID, unitID, actor string, role rbac.Role, note string) error {
	return retryConflict(m.log, func() error {
		l, err := m.store.GetSecurityLock(ctx, studentID, unitID)
		if err != nil {
			return err
		}
		now := m.now().UTC()
		if !l.Locked {
			m.log.Info().Str("student", studentID).Str("unit", unitID).Msg("unlock of already-unlocked security lock")
		}
		l.Locked = false
		l.Reason = ""
		l.LockedAt = nil
		return m.store.UpsertSecurityLock(ctx, l, auditEntry(LockTypeSecurity, studentID, unitID, actor, role, ActionUnlock, note, now))
	})
}

// RecordViolation increments the violation counter and locks once the count
// reaches the threshold. Returns the updated lock.
func (m *SecurityLockManager) RecordViolation(ctx context.Context, studentID, unitID, details string) (SecurityLock, error) {
	var out SecurityLock
	err := retryConflict(m.log, func() error {
		l, err := m.store.GetSecurityLock(ctx, studentID, unitID)
		if err != nil {
			return err
		}
		now := m.now().UTC()
		l.ViolationCount++
		action := AuditAction("violation")
		if !l.Locked && l.ViolationCount >= m.threshold {
			l.Locked = true
			l.Reason = "security violations: " + details
			l.LockedAt = &now
			action = ActionLock
		}
		if err := m.store.UpsertSecurityLock(ctx, l, auditEntry(LockTypeSecurity, studentID, unitID, "system", "", action, details, now)); err != nil {
			return err
		}
		l.Version++ // reflect the committed write
		out = l
		return nil
	})
	return out, err
}

func auditEntry(t LockType, studentID, unitID, actor string, role rbac.Role, action AuditAction, note string, at time.Time) AuditEntry {
	return AuditEntry{
		ID:        uuid.NewString(),
		LockType:  t,
		StudentID: studentID,
		UnitID:    unitID,
		Actor:     actor,
		ActorRole: role,
		Action:    action,
		Note:      note,
		CreatedAt: at,
	}
}

// retryConflict re-runs fn on optimistic-concurrency conflicts, up to the
// bounded retry count; any other error propagates immediately.
func retryConflict(log zerolog.Logger, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = fn()
		if err == nil || apperr.KindOf(err) != apperr.KindConflictingUpdate {
			return err
		}
		log.Debug().Int("attempt", attempt).Msg("lock update conflict, retrying")
	}
	return err
}
