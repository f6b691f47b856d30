package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteSuite struct {
	suite.Suite
	ctx   context.Context
	store *SQLite
	clock time.Time
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}

func (s *SQLiteSuite) SetupTest() {
	s.ctx = context.Background()

	cfg := &config.Config{Storage: config.Storage{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(s.T().TempDir(), "students.db"),
	}}

	store, err := New(cfg)
	s.Require().NoError(err)
	s.store = store

	s.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store.now = func() time.Time { return s.clock }
}

func (s *SQLiteSuite) TearDownTest() {
	s.NoError(s.store.Close(s.ctx))
}

func age(i int) *int { return &i }

func (s *SQLiteSuite) create(name string, grades ...float64) types.Student {
	student, err := s.store.CreateStudent(s.ctx, types.StudentInput{
		Name: name, Age: age(20), Course: "Math", Grades: grades,
	})
	s.Require().NoError(err)
	return student
}

func (s *SQLiteSuite) TestCreateAndGetRoundTrip() {
	created := s.create("Ana", 8, 9.5)

	s.True(storage.IsValidID(created.ID))
	s.Equal("Ana", created.Name)
	s.Equal(20, created.Age)
	s.Equal("Math", created.Course)
	s.Equal([]float64{8, 9.5}, created.Grades)
	s.Equal(s.clock, created.CreatedAt)
	s.Equal(s.clock, created.UpdatedAt)

	fetched, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created, fetched)
}

func (s *SQLiteSuite) TestCreateWithoutGradesStoresEmptyList() {
	created := s.create("Ana")

	fetched, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.NotNil(fetched.Grades)
	s.Empty(fetched.Grades)
}

func (s *SQLiteSuite) TestGetMissing() {
	_, err := s.store.GetStudentByID(s.ctx, storage.NewID())
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *SQLiteSuite) TestGetStudentsEmpty() {
	students, err := s.store.GetStudents(s.ctx)
	s.Require().NoError(err)
	s.NotNil(students)
	s.Empty(students)
}

func (s *SQLiteSuite) TestGetStudentsAfterCreatesAndDeletes() {
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.create(fmt.Sprintf("Student %d", i)).ID)
	}
	s.Require().NoError(s.store.DeleteStudentByID(s.ctx, ids[1]))
	s.Require().NoError(s.store.DeleteStudentByID(s.ctx, ids[3]))

	students, err := s.store.GetStudents(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(students, 3)
	s.Equal(ids[0], students[0].ID)
	s.Equal(ids[2], students[1].ID)
	s.Equal(ids[4], students[2].ID)
}

func (s *SQLiteSuite) TestReplaceResetsOmittedGrades() {
	created := s.create("Ana", 8, 9)
	s.clock = s.clock.Add(time.Minute)

	replaced, err := s.store.ReplaceStudentByID(s.ctx, created.ID, types.StudentInput{
		Name: "Ana Maria", Age: age(21), Course: "Physics",
	})
	s.Require().NoError(err)

	s.Equal(created.ID, replaced.ID)
	s.Equal("Ana Maria", replaced.Name)
	s.Equal(21, replaced.Age)
	s.Equal("Physics", replaced.Course)
	s.Equal([]float64{}, replaced.Grades)
	s.Equal(created.CreatedAt, replaced.CreatedAt)
	s.Equal(s.clock, replaced.UpdatedAt)
}

func (s *SQLiteSuite) TestReplaceMissing() {
	_, err := s.store.ReplaceStudentByID(s.ctx, storage.NewID(), types.StudentInput{
		Name: "Ana", Age: age(20), Course: "Math",
	})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *SQLiteSuite) TestUpdatePreservesOmittedFields() {
	created := s.create("Ana", 8, 9)
	s.clock = s.clock.Add(time.Minute)

	updated, err := s.store.UpdateStudentByID(s.ctx, created.ID, types.StudentPatch{Age: age(22)})
	s.Require().NoError(err)

	s.Equal(22, updated.Age)
	s.Equal("Ana", updated.Name)
	s.Equal("Math", updated.Course)
	s.Equal([]float64{8, 9}, updated.Grades)
	s.Equal(created.CreatedAt, updated.CreatedAt)
	s.Equal(s.clock, updated.UpdatedAt)

	fetched, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(updated, fetched)
}

func (s *SQLiteSuite) TestUpdateMissing() {
	_, err := s.store.UpdateStudentByID(s.ctx, storage.NewID(), types.StudentPatch{Age: age(22)})
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *SQLiteSuite) TestDeleteTwice() {
	created := s.create("Ana")

	s.NoError(s.store.DeleteStudentByID(s.ctx, created.ID))
	s.ErrorIs(s.store.DeleteStudentByID(s.ctx, created.ID), storage.ErrNotFound)

	_, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *SQLiteSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func (s *SQLiteSuite) TestConcurrentPatchesKeepEveryField() {
	created := s.create("Ana", 1)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.store.UpdateStudentByID(s.ctx, created.ID, types.StudentPatch{Age: age(30)})
		errs <- err
	}()
	go func() {
		defer wg.Done()
		course := "History"
		_, err := s.store.UpdateStudentByID(s.ctx, created.ID, types.StudentPatch{Course: &course})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	fetched, err := s.store.GetStudentByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(30, fetched.Age)
	s.Equal("History", fetched.Course)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "a.db?_busy_timeout=5000&_txlock=immediate", dsn("a.db"))
	assert.Equal(t, "file:a.db?mode=ro", dsn("file:a.db?mode=ro"))
}

func TestNewFailsOnUnwritablePath(t *testing.T) {
	cfg := &config.Config{Storage: config.Storage{
		SQLitePath: filepath.Join(t.TempDir(), "missing-dir", "students.db"),
	}}

	_, err := New(cfg)
	require.Error(t, err)
}
