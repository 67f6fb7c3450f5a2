package lockout

import (
	"context"
	"sync"
	"time"

	"github.com/edvance/edvance-lms/internal/apperr"
)

type memoryStore struct {
	mu       sync.Mutex
	quiz     map[string]QuizLock
	security map[string]SecurityLock
	audit    []AuditEntry
	requests map[string]UnlockRequest
}

func NewInMemoryStore() Store {
	return &memoryStore{
		quiz:     map[string]QuizLock{},
		security: map[string]SecurityLock{},
		requests: map[string]UnlockRequest{},
	}
}

func lockKey(studentID, unitID string) string { return studentID + "|" + unitID }

func (m *memoryStore) GetQuizLock(_ context.Context, studentID, unitID string) (QuizLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.quiz[lockKey(studentID, unitID)]
	l.StudentID, l.UnitID = studentID, unitID
	return l, nil
}

func (m *memoryStore) UpsertQuizLock(_ context.Context, l QuizLock, audit AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(l.StudentID, l.UnitID)
	if cur := m.quiz[key]; cur.Version != l.Version {
		return apperr.ConflictingUpdate("quiz lock %s version %d", key, l.Version)
	}
	l.Version++
	m.quiz[key] = l
	m.audit = append(m.audit, audit)
	return nil
}

func (m *memoryStore) GetSecurityLock(_ context.Context, studentID, unitID string) (SecurityLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.security[lockKey(studentID, unitID)]
	l.StudentID, l.UnitID = studentID, unitID
	return l, nil
}

func (m *memoryStore) UpsertSecurityLock(_ context.Context, l SecurityLock, audit AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(l.StudentID, l.UnitID)
	if cur := m.security[key]; cur.Version != l.Version {
		return apperr.ConflictingUpdate("security lock %s version %d", key, l.Version)
	}
	l.Version++
	m.security[key] = l
	m.audit = append(m.audit, audit)
	return nil
}

func (m *memoryStore) ClearBoth(_ context.Context, studentID, unitID string, entries []AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(studentID, unitID)

	q := m.quiz[key]
	q.StudentID, q.UnitID = studentID, unitID
	q.Locked = false
	q.Reason = ""
	q.LockedAt = nil
	q.Version++
	m.quiz[key] = q

	s := m.security[key]
	s.StudentID, s.UnitID = studentID, unitID
	s.Locked = false
	s.Reason = ""
	s.LockedAt = nil
	s.Version++
	m.security[key] = s

	m.audit = append(m.audit, entries...)
	return nil
}

func (m *memoryStore) ListAudit(_ context.Context, studentID, unitID string) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for _, e := range m.audit {
		if e.StudentID == studentID && e.UnitID == unitID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateRequest(_ context.Context, r UnlockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = r
	return nil
}

func (m *memoryStore) GetRequest(_ context.Context, id string) (UnlockRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return UnlockRequest{}, apperr.NotFound("unlock request %s", id)
	}
	return r, nil
}

func (m *memoryStore) ListRequests(_ context.Context, status RequestStatus) ([]UnlockRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []UnlockRequest
	for _, r := range m.requests {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryStore) ResolveRequest(_ context.Context, id string, to RequestStatus, reviewedBy, note string) (UnlockRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return UnlockRequest{}, apperr.NotFound("unlock request %s", id)
	}
	if r.Status != RequestPending {
		return UnlockRequest{}, apperr.InvalidTransition("unlock request %s already %s", id, r.Status)
	}
	now := time.Now().UTC()
	r.Status = to
	r.ReviewedBy = reviewedBy
	r.ReviewNote = note
	r.ReviewedAt = &now
	m.requests[id] = r
	return r, nil
}
