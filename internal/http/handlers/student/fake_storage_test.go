package student

import (
	"context"
	"sync"
	"time"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
)

// fakeStorage is an in-memory storage.Storage that counts calls. When err
// is set every call fails with it.
type fakeStorage struct {
	mu       sync.Mutex
	students map[string]types.Student
	order    []string
	calls    int
	err      error
	now      time.Time
}

var _ storage.Storage = (*fakeStorage)(nil)

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		students: map[string]types.Student{},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// record counts a call. Callers hold mu.
func (f *fakeStorage) record() error {
	f.calls++
	return f.err
}

func (f *fakeStorage) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeStorage) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeStorage) CreateStudent(_ context.Context, in types.StudentInput) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(); err != nil {
		return types.Student{}, err
	}

	now := f.tick()
	s := types.Student{
		ID:        storage.NewID(),
		Name:      in.Name,
		Age:       *in.Age,
		Course:    in.Course,
		Grades:    append([]float64{}, in.Grades...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.students[s.ID] = s
	f.order = append(f.order, s.ID)
	return s, nil
}

func (f *fakeStorage) GetStudentByID(_ context.Context, id string) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(); err != nil {
		return types.Student{}, err
	}

	s, ok := f.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeStorage) GetStudents(_ context.Context) ([]types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(); err != nil {
		return nil, err
	}

	out := make([]types.Student, 0, len(f.students))
	for _, id := range f.order {
		if s, ok := f.students[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStorage) ReplaceStudentByID(_ context.Context, id string, in types.StudentInput) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(); err != nil {
		return types.Student{}, err
	}

	s, ok := f.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	s.Name, s.Age, s.Course = in.Name, *in.Age, in.Course
	s.Grades = append([]float64{}, in.Grades...)
	s.UpdatedAt = f.tick()
	f.students[id] = s
	return s, nil
}

func (f *fakeStorage) UpdateStudentByID(_ context.Context, id string, patch types.StudentPatch) (types.Student, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(); err != nil {
		return types.Student{}, err
	}

	s, ok := f.students[id]
	if !ok {
		return types.Student{}, storage.ErrNotFound
	}
	patch.Apply(&s)
	s.UpdatedAt = f.tick()
	f.students[id] = s
	return s, nil
}

func (f *fakeStorage) DeleteStudentByID(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(); err != nil {
		return err
	}

	if _, ok := f.students[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.students, id)
	return nil
}

func (f *fakeStorage) Ping(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record()
}

func (f *fakeStorage) Close(_ context.Context) error { return nil }
