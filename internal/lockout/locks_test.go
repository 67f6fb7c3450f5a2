package lockout

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestQuizLockRoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	m := NewQuizLockManager(store, zerolog.Nop())
	ctx := context.Background()

	l, err := m.Status(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if l.Locked {
		t.Fatalf("fresh lock record must be unlocked")
	}

	if err := m.Lock(ctx, "s1", "u1", ReasonAttemptLimit); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	l, _ = m.Status(ctx, "s1", "u1")
	if !l.Locked || l.Reason != ReasonAttemptLimit || l.LockedAt == nil {
		t.Fatalf("lock not recorded: %+v", l)
	}

	if err := m.Unlock(ctx, "s1", "u1", "t1", "teacher", "reviewed in office hours"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	l, _ = m.Status(ctx, "s1", "u1")
	if l.Locked || l.Reason != "" || l.LockedAt != nil {
		t.Fatalf("unlock did not reset record: %+v", l)
	}
}

func TestUnlockIsIdempotentAndAlwaysAudited(t *testing.T) {
	store := NewInMemoryStore()
	m := NewQuizLockManager(store, zerolog.Nop())
	ctx := context.Background()

	if err := m.Unlock(ctx, "s1", "u1", "t1", "teacher", "first"); err != nil {
		t.Fatalf("first Unlock: %v", err)
	}
	if err := m.Unlock(ctx, "s1", "u1", "t1", "teacher", "second"); err != nil {
		t.Fatalf("second Unlock: %v", err)
	}

	l, _ := m.Status(ctx, "s1", "u1")
	if l.Locked {
		t.Fatalf("lock must stay unlocked")
	}
	audit, err := store.ListAudit(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if len(audit) != 2 {
		t.Fatalf("got %d audit entries, want 2 (every unlock is on record)", len(audit))
	}
	for _, e := range audit {
		if e.Action != ActionUnlock || e.Actor != "t1" {
			t.Fatalf("bad audit entry: %+v", e)
		}
	}
}

func TestViolationThresholdAutoLocks(t *testing.T) {
	store := NewInMemoryStore()
	m := NewSecurityLockManager(store, 3, zerolog.Nop())
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		l, err := m.RecordViolation(ctx, "s1", "u1", "tab switch")
		if err != nil {
			t.Fatalf("RecordViolation %d: %v", i, err)
		}
		if l.Locked {
			t.Fatalf("locked after %d violations, threshold is 3", i)
		}
		if l.ViolationCount != i {
			t.Fatalf("violation count %d, want %d", l.ViolationCount, i)
		}
	}

	l, err := m.RecordViolation(ctx, "s1", "u1", "copy attempt")
	if err != nil {
		t.Fatalf("RecordViolation 3: %v", err)
	}
	if !l.Locked {
		t.Fatalf("third violation must lock")
	}
	if l.ViolationCount != 3 {
		t.Fatalf("violation count %d, want 3", l.ViolationCount)
	}

	audit, _ := store.ListAudit(ctx, "s1", "u1")
	if len(audit) != 3 {
		t.Fatalf("got %d audit entries, want 3", len(audit))
	}
	if audit[2].Action != ActionLock {
		t.Fatalf("threshold entry action %s, want lock", audit[2].Action)
	}
}

func TestViolationsKeepAccumulatingWhileLocked(t *testing.T) {
	store := NewInMemoryStore()
	m := NewSecurityLockManager(store, 2, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := m.RecordViolation(ctx, "s1", "u1", "noise"); err != nil {
			t.Fatalf("RecordViolation: %v", err)
		}
	}
	l, _ := m.Status(ctx, "s1", "u1")
	if !l.Locked || l.ViolationCount != 4 {
		t.Fatalf("count must keep rising past the threshold: %+v", l)
	}
}
