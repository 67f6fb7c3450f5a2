package lockout

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/edvance/edvance-lms/internal/apperr"
)

// fakeDirectory maps student IDs to their org position.
type fakeDirectory map[string]SubjectScope

func (d fakeDirectory) StudentScope(_ context.Context, studentID string) (SubjectScope, error) {
	s, ok := d[studentID]
	if !ok {
		return SubjectScope{}, apperr.NotFound("student %s", studentID)
	}
	return s, nil
}

func lockBoth(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	if err := NewQuizLockManager(store, zerolog.Nop()).Lock(ctx, "s1", "u1", ReasonAttemptLimit); err != nil {
		t.Fatalf("quiz Lock: %v", err)
	}
	if err := NewSecurityLockManager(store, 3, zerolog.Nop()).Lock(ctx, "s1", "u1", "proctor flag"); err != nil {
		t.Fatalf("security Lock: %v", err)
	}
}

func TestUnlockClearsBothLocks(t *testing.T) {
	store := NewInMemoryStore()
	dir := fakeDirectory{"s1": {SectionID: "sec-a", DepartmentID: "cs"}}
	w := NewWorkflow(store, dir, zerolog.Nop())
	ctx := context.Background()

	lockBoth(t, store)
	teacher := Actor{ID: "t1", Role: "teacher", SectionID: "sec-a"}
	if err := w.Unlock(ctx, teacher, "s1", "u1", "talked it over"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	st, err := w.Status(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Quiz.Locked {
		t.Fatalf("quiz lock must be cleared")
	}
	if st.Security.Locked {
		t.Fatalf("security lock must be cleared by the same unlock")
	}
	// 2 lock entries + 2 unlock entries, one per lock type.
	if len(st.History) != 4 {
		t.Fatalf("got %d audit entries, want 4", len(st.History))
	}
	unlocks := 0
	for _, e := range st.History {
		if e.Action == ActionUnlock {
			unlocks++
			if e.Actor != "t1" {
				t.Fatalf("unlock attributed to %s, want t1", e.Actor)
			}
		}
	}
	if unlocks != 2 {
		t.Fatalf("got %d unlock entries, want 2", unlocks)
	}
}

func TestUnlockScopeEnforcement(t *testing.T) {
	dir := fakeDirectory{"s1": {SectionID: "sec-a", DepartmentID: "cs"}}
	cases := []struct {
		name  string
		actor Actor
		allow bool
	}{
		{"teacher same section", Actor{ID: "t1", Role: "teacher", SectionID: "sec-a"}, true},
		{"teacher other section", Actor{ID: "t2", Role: "teacher", SectionID: "sec-b"}, false},
		{"hod same department", Actor{ID: "h1", Role: "hod", DepartmentID: "cs"}, true},
		{"hod other department", Actor{ID: "h2", Role: "hod", DepartmentID: "math"}, false},
		{"dean anywhere", Actor{ID: "d1", Role: "dean"}, true},
		{"admin anywhere", Actor{ID: "a1", Role: "admin"}, true},
		{"student never", Actor{ID: "s9", Role: "student", SectionID: "sec-a"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := NewInMemoryStore()
			w := NewWorkflow(store, dir, zerolog.Nop())
			lockBoth(t, store)

			err := w.Unlock(context.Background(), tc.actor, "s1", "u1", "")
			if tc.allow && err != nil {
				t.Fatalf("expected unlock to pass, got %v", err)
			}
			if !tc.allow {
				if apperr.KindOf(err) != apperr.KindForbidden {
					t.Fatalf("expected Forbidden, got %v", err)
				}
				st, _ := w.Status(context.Background(), "s1", "u1")
				if !st.Quiz.Locked || !st.Security.Locked {
					t.Fatalf("denied unlock must leave locks untouched")
				}
			}
		})
	}
}

func TestReviewApproveClearsLocks(t *testing.T) {
	store := NewInMemoryStore()
	dir := fakeDirectory{"s1": {SectionID: "sec-a", DepartmentID: "cs"}}
	w := NewWorkflow(store, dir, zerolog.Nop())
	ctx := context.Background()

	lockBoth(t, store)
	teacher := Actor{ID: "t1", Role: "teacher", SectionID: "sec-a"}
	req, err := w.SubmitRequest(ctx, teacher, "s1", "u1", "limit reached during outage")
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if req.Status != RequestPending {
		t.Fatalf("new request status %s, want pending", req.Status)
	}

	hod := Actor{ID: "h1", Role: "hod", DepartmentID: "cs"}
	resolved, err := w.Review(ctx, hod, req.ID, true, "approved")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if resolved.Status != RequestApproved {
		t.Fatalf("status %s, want approved", resolved.Status)
	}
	if resolved.ReviewedBy != "h1" || resolved.ReviewedAt == nil {
		t.Fatalf("review attribution missing: %+v", resolved)
	}

	st, _ := w.Status(ctx, "s1", "u1")
	if st.Quiz.Locked || st.Security.Locked {
		t.Fatalf("approval must clear both locks")
	}
}

func TestReviewRejectLeavesLocks(t *testing.T) {
	store := NewInMemoryStore()
	dir := fakeDirectory{"s1": {SectionID: "sec-a", DepartmentID: "cs"}}
	w := NewWorkflow(store, dir, zerolog.Nop())
	ctx := context.Background()

	lockBoth(t, store)
	req, _ := w.SubmitRequest(ctx, Actor{ID: "t1", Role: "teacher", SectionID: "sec-a"}, "s1", "u1", "")

	dean := Actor{ID: "d1", Role: "dean"}
	resolved, err := w.Review(ctx, dean, req.ID, false, "insufficient grounds")
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if resolved.Status != RequestRejected {
		t.Fatalf("status %s, want rejected", resolved.Status)
	}
	st, _ := w.Status(ctx, "s1", "u1")
	if !st.Quiz.Locked || !st.Security.Locked {
		t.Fatalf("rejection must leave locks untouched")
	}
}

// clearFailStore fails dual-clears on demand so the approval path's
// failure handling can be exercised.
type clearFailStore struct {
	Store
	fail bool
}

func (s *clearFailStore) ClearBoth(ctx context.Context, studentID, unitID string, entries []AuditEntry) error {
	if s.fail {
		return apperr.ConflictingUpdate("lock state raced")
	}
	return s.Store.ClearBoth(ctx, studentID, unitID, entries)
}

func TestReviewApproveFailedClearStaysPending(t *testing.T) {
	store := &clearFailStore{Store: NewInMemoryStore(), fail: true}
	dir := fakeDirectory{"s1": {SectionID: "sec-a", DepartmentID: "cs"}}
	w := NewWorkflow(store, dir, zerolog.Nop())
	ctx := context.Background()

	lockBoth(t, store)
	req, _ := w.SubmitRequest(ctx, Actor{ID: "t1", Role: "teacher", SectionID: "sec-a"}, "s1", "u1", "")

	dean := Actor{ID: "d1", Role: "dean"}
	if _, err := w.Review(ctx, dean, req.ID, true, ""); err == nil {
		t.Fatalf("review must fail when the clear fails")
	}
	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != RequestPending {
		t.Fatalf("request must stay pending after a failed clear, got %s", got.Status)
	}

	// The retry completes the approval and the clear together.
	store.fail = false
	resolved, err := w.Review(ctx, dean, req.ID, true, "second pass")
	if err != nil {
		t.Fatalf("retry Review: %v", err)
	}
	if resolved.Status != RequestApproved {
		t.Fatalf("status %s, want approved", resolved.Status)
	}
	st, _ := w.Status(ctx, "s1", "u1")
	if st.Quiz.Locked || st.Security.Locked {
		t.Fatalf("approval must clear both locks")
	}
}

func TestReviewIsTerminal(t *testing.T) {
	store := NewInMemoryStore()
	dir := fakeDirectory{"s1": {SectionID: "sec-a", DepartmentID: "cs"}}
	w := NewWorkflow(store, dir, zerolog.Nop())
	ctx := context.Background()

	lockBoth(t, store)
	req, _ := w.SubmitRequest(ctx, Actor{ID: "t1", Role: "teacher", SectionID: "sec-a"}, "s1", "u1", "")

	dean := Actor{ID: "d1", Role: "dean"}
	if _, err := w.Review(ctx, dean, req.ID, true, ""); err != nil {
		t.Fatalf("first Review: %v", err)
	}
	_, err := w.Review(ctx, dean, req.ID, false, "changed my mind")
	if apperr.KindOf(err) != apperr.KindInvalidTransition {
		t.Fatalf("re-review must fail with InvalidTransition, got %v", err)
	}

	got, _ := store.GetRequest(ctx, req.ID)
	if got.Status != RequestApproved {
		t.Fatalf("original outcome must survive, got %s", got.Status)
	}
	st, _ := w.Status(ctx, "s1", "u1")
	if st.Quiz.Locked || st.Security.Locked {
		t.Fatalf("failed re-review must not re-lock")
	}
}
