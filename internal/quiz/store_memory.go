package quiz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edvance/edvance-lms/internal/apperr"
	"github.com/edvance/edvance-lms/internal/lockout"
	"github.com/edvance/edvance-lms/internal/rbac"
)

type memoryStore struct {
	mu        sync.Mutex
	questions map[string]Question
	attempts  []Attempt
	locks     lockout.Store
}

// NewInMemoryStore keeps questions and attempts in maps. The lockout store
// is needed so the boundary attempt can trip the quiz lock inside the same
// critical section.
func NewInMemoryStore(locks lockout.Store) Store {
	return &memoryStore{
		questions: map[string]Question{},
		locks:     locks,
	}
}

func (m *memoryStore) PutQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) ListQuestions(_ context.Context, unitID string) ([]Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Question
	for _, q := range m.questions {
		if q.UnitID == unitID {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) CreateAttempt(ctx context.Context, a Attempt, limit int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	taken := 0
	for _, x := range m.attempts {
		if x.StudentID == a.StudentID && x.UnitID == a.UnitID {
			taken++
		}
	}
	if taken >= limit {
		return false, apperr.AttemptLimitReached("attempts taken %d of %d", taken, limit)
	}

	// The lock write goes first: if it fails, no attempt is persisted, so
	// the pair stays all-or-nothing like the transactional store.
	if taken+1 == limit && !a.Passed {
		now := time.Now().UTC()
		l, err := m.locks.GetQuizLock(ctx, a.StudentID, a.UnitID)
		if err != nil {
			return false, err
		}
		l.Locked = true
		l.Reason = lockout.ReasonAttemptLimit
		l.LockedAt = &now
		err = m.locks.UpsertQuizLock(ctx, l, lockout.AuditEntry{
			ID:        a.ID + "-lock",
			LockType:  lockout.LockTypeQuiz,
			StudentID: a.StudentID,
			UnitID:    a.UnitID,
			Actor:     "system",
			ActorRole: rbac.Role(""),
			Action:    lockout.ActionLock,
			Note:      lockout.ReasonAttemptLimit,
			CreatedAt: now,
		})
		if err != nil {
			return false, err
		}
		m.attempts = append(m.attempts, a)
		return true, nil
	}
	m.attempts = append(m.attempts, a)
	return false, nil
}

func (m *memoryStore) CountAttempts(_ context.Context, studentID, unitID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, x := range m.attempts {
		if x.StudentID == studentID && x.UnitID == unitID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) ListStudentAttempts(_ context.Context, studentID, unitID string) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, x := range m.attempts {
		if x.StudentID == studentID && x.UnitID == unitID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (m *memoryStore) ListUnitAttempts(_ context.Context, unitID string) ([]Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Attempt
	for _, x := range m.attempts {
		if x.UnitID == unitID {
			out = append(out, x)
		}
	}
	return out, nil
}
