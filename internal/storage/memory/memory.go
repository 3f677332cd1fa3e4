// Package memory keeps students in a process-local map. It backs the
// "memory" storage driver and the handler tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/thedynamicdoers/institute-api/internal/storage"
	"github.com/thedynamicdoers/institute-api/internal/types"
)

var _ storage.Storage = (*Memory)(nil)

// Memory is a storage.Storage guarded by a single RWMutex.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	rows   map[int64]types.Student
}

// New returns an empty store whose first assigned id is 1.
func New() *Memory {
	return &Memory{rows: make(map[int64]types.Student)}
}

// Close is a no-op; it lets Memory stand in wherever a closable store is expected.
func (m *Memory) Close() error { return nil }

// CreateStudent stores a copy of student under the next id.
func (m *Memory) CreateStudent(_ context.Context, student types.Student) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	student.ID = m.nextID
	student.ImageName = clone(student.ImageName)
	m.rows[student.ID] = student

	return copyOf(student), nil
}

// GetStudentByID returns a copy of the student with that id.
func (m *Memory) GetStudentByID(_ context.Context, id int64) (types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	student, ok := m.rows[id]
	if !ok {
		return types.Student{}, storage.NotFound(id)
	}

	return copyOf(student), nil
}

// GetStudents returns every student ordered by id.
func (m *Memory) GetStudents(_ context.Context) ([]types.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	students := make([]types.Student, 0, len(m.rows))
	for _, student := range m.rows {
		students = append(students, copyOf(student))
	}

	// ids are handed out monotonically, so id order is insertion order
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })

	return students, nil
}

// UpdateStudentByID replaces every field of an existing student.
func (m *Memory) UpdateStudentByID(_ context.Context, id int64, student types.Student) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rows[id]; !ok {
		return types.Student{}, storage.NotFound(id)
	}

	student.ID = id
	student.ImageName = clone(student.ImageName)
	m.rows[id] = student

	return copyOf(student), nil
}

// DeleteStudentByID removes the student and returns what was stored.
func (m *Memory) DeleteStudentByID(_ context.Context, id int64) (types.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	student, ok := m.rows[id]
	if !ok {
		return types.Student{}, storage.NotFound(id)
	}
	delete(m.rows, id)

	return student, nil
}

func copyOf(s types.Student) types.Student {
	s.ImageName = clone(s.ImageName)
	return s
}

func clone(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
