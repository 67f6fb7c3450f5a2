package course

import (
	"context"
	"sort"
	"sync"

	"github.com/edvance/edvance-lms/internal/apperr"
)

type memoryStore struct {
	mu       sync.RWMutex
	courses  map[string]Course
	units    map[string]Unit
	progress map[string]Progress // key: studentID|unitID
}

// NewInMemoryStore backs the resolver with maps. Used in tests and offline
// tooling; the gateway runs the SQL store.
func NewInMemoryStore() Store {
	return &memoryStore{
		courses:  map[string]Course{},
		units:    map[string]Unit{},
		progress: map[string]Progress{},
	}
}

func progressKey(studentID, unitID string) string { return studentID + "|" + unitID }

func (m *memoryStore) PutCourse(_ context.Context, c Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
	return nil
}

func (m *memoryStore) GetCourse(_ context.Context, id string) (Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return Course{}, apperr.NotFound("course %s", id)
	}
	return c, nil
}

func (m *memoryStore) PutUnit(_ context.Context, u Unit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units[u.ID] = u
	return nil
}

func (m *memoryStore) GetUnit(_ context.Context, id string) (Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.units[id]
	if !ok {
		return Unit{}, apperr.NotFound("unit %s", id)
	}
	return u, nil
}

func (m *memoryStore) ListUnits(_ context.Context, courseID string) ([]Unit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Unit
	for _, u := range m.units {
		if u.CourseID == courseID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memoryStore) GetProgress(_ context.Context, studentID, unitID string) (Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress[progressKey(studentID, unitID)], nil
}

func (m *memoryStore) ListProgress(_ context.Context, studentID, courseID string) (map[string]Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]Progress{}
	for _, p := range m.progress {
		if p.StudentID == studentID && p.CourseID == courseID {
			out[p.UnitID] = p
		}
	}
	return out, nil
}

func (m *memoryStore) UpsertProgress(_ context.Context, p Progress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(p.StudentID, p.UnitID)
	cur := m.progress[key]
	if cur.Version != p.Version {
		return apperr.ConflictingUpdate("progress %s version %d", key, p.Version)
	}
	p.Version++
	m.progress[key] = p
	return nil
}
