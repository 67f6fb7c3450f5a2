package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/lockout"
)

// conflictLockStore fails quiz-lock upserts on demand to exercise the
// boundary-attempt failure path.
type conflictLockStore struct {
	lockout.Store
	fail bool
}

func (s *conflictLockStore) UpsertQuizLock(ctx context.Context, l lockout.QuizLock, audit lockout.AuditEntry) error {
	if s.fail {
		return apperr.ConflictingUpdate("quiz lock raced")
	}
	return s.Store.UpsertQuizLock(ctx, l, audit)
}

func TestBoundaryLockFailureKeepsNoAttempt(t *testing.T) {
	locks := &conflictLockStore{Store: lockout.NewInMemoryStore(), fail: true}
	store := NewInMemoryStore(locks)
	ctx := context.Background()

	attempt := Attempt{
		ID: "a1", StudentID: "s1", UnitID: "u1",
		Answers: map[string]interface{}{}, CreatedAt: time.Now().UTC(),
	}
	_, err := store.CreateAttempt(ctx, attempt, 1)
	if apperr.KindOf(err) != apperr.KindConflictingUpdate {
		t.Fatalf("expected the lock conflict to propagate, got %v", err)
	}
	if n, _ := store.CountAttempts(ctx, "s1", "u1"); n != 0 {
		t.Fatalf("attempt persisted despite the failed lock write: count %d", n)
	}
	l, _ := locks.GetQuizLock(ctx, "s1", "u1")
	if l.Locked {
		t.Fatalf("lock must not be set either")
	}

	// Resolved conflict: the retry lands attempt and lock together.
	locks.fail = false
	locked, err := store.CreateAttempt(ctx, attempt, 1)
	if err != nil {
		t.Fatalf("retry CreateAttempt: %v", err)
	}
	if !locked {
		t.Fatalf("boundary attempt must report the lock flip")
	}
	if n, _ := store.CountAttempts(ctx, "s1", "u1"); n != 1 {
		t.Fatalf("count %d, want 1", n)
	}
	l, _ = locks.GetQuizLock(ctx, "s1", "u1")
	if !l.Locked {
		t.Fatalf("lock must be set after the successful boundary attempt")
	}
}
