// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// SQLite keeps everything in a single file on disk with no server process,
// which makes it the easy backend for local development. Grades are stored
// as a JSON array in a TEXT column and timestamps as unix milliseconds.
//
// The blank import registers the "sqlite3" driver with database/sql.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
// A single *sql.DB is a connection pool and safe for concurrent use.
type SQLite struct {
	Db *sql.DB

	now func() time.Time
}

var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at cfg.Storage.SQLitePath, creates the
// students table if it does not already exist, and returns a ready-to-use
// *SQLite.
func New(cfg *config.Config) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn(cfg.Storage.SQLitePath))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// CREATE TABLE IF NOT EXISTS is idempotent, safe on every startup.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id         TEXT    PRIMARY KEY,
			name       TEXT    NOT NULL,
			age        INTEGER NOT NULL,
			course     TEXT    NOT NULL,
			grades     TEXT    NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db, now: time.Now}, nil
}

// dsn adds a busy timeout and immediate transactions so concurrent writers
// wait for the lock instead of failing with SQLITE_BUSY.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_busy_timeout=5000&_txlock=immediate"
}

// timestamp is the current time at the millisecond precision the table
// stores.
func (s *SQLite) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

const selectColumns = "SELECT id, name, age, course, grades, created_at, updated_at FROM students"

type scanner interface {
	Scan(dest ...any) error
}

// scanStudent reads one row in selectColumns order.
func scanStudent(row scanner) (types.Student, error) {
	var (
		student              types.Student
		grades               string
		createdAt, updatedAt int64
	)

	if err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Age,
		&student.Course,
		&grades,
		&createdAt,
		&updatedAt,
	); err != nil {
		return types.Student{}, err
	}

	if err := json.Unmarshal([]byte(grades), &student.Grades); err != nil {
		return types.Student{}, fmt.Errorf("decode grades: %w", err)
	}
	if student.Grades == nil {
		student.Grades = []float64{}
	}
	student.CreatedAt = time.UnixMilli(createdAt).UTC()
	student.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return student, nil
}

func encodeGrades(grades []float64) (string, error) {
	if grades == nil {
		grades = []float64{}
	}
	b, err := json.Marshal(grades)
	if err != nil {
		return "", fmt.Errorf("encode grades: %w", err)
	}
	return string(b), nil
}

// CreateStudent inserts a new row with a fresh ObjectID.
func (s *SQLite) CreateStudent(ctx context.Context, in types.StudentInput) (types.Student, error) {
	grades, err := encodeGrades(in.Grades)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: %w", err)
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO students (id, name, age, course, grades, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	now := s.timestamp()
	student := types.Student{
		ID:        storage.NewID(),
		Name:      in.Name,
		Age:       derefAge(in.Age),
		Course:    in.Course,
		Grades:    append([]float64{}, in.Grades...),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = stmt.ExecContext(ctx,
		student.ID, student.Name, student.Age, student.Course, grades,
		now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	return student, nil
}

// GetStudentByID fetches exactly one student matched by id.
func (s *SQLite) GetStudentByID(ctx context.Context, id string) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, selectColumns+" WHERE id = ? LIMIT 1")
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	student, err := scanStudent(stmt.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("GetStudentByID: scan: %w", err)
	}

	return student, nil
}

// GetStudents returns all students in insertion order.
func (s *SQLite) GetStudents(ctx context.Context) ([]types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx, selectColumns+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("GetStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetStudents: query: %w", err)
	}
	defer rows.Close()

	// [] rather than null in JSON
	students := make([]types.Student, 0)

	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("GetStudents: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetStudents: rows iteration: %w", err)
	}

	return students, nil
}

// ReplaceStudentByID overwrites every user-editable column. Grades left
// out of in are stored as an empty list.
func (s *SQLite) ReplaceStudentByID(ctx context.Context, id string, in types.StudentInput) (types.Student, error) {
	grades, err := encodeGrades(in.Grades)
	if err != nil {
		return types.Student{}, fmt.Errorf("ReplaceStudentByID: %w", err)
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"UPDATE students SET name = ?, age = ?, course = ?, grades = ?, updated_at = ? WHERE id = ?",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("ReplaceStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		in.Name, derefAge(in.Age), in.Course, grades, s.timestamp().UnixMilli(), id,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("ReplaceStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return types.Student{}, fmt.Errorf("ReplaceStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return types.Student{}, storage.ErrNotFound
	}

	// Re-fetch so we return exactly what is stored.
	return s.GetStudentByID(ctx, id)
}

// UpdateStudentByID reads, merges and writes back inside one transaction so
// concurrent patches cannot lose each other's fields.
func (s *SQLite) UpdateStudentByID(ctx context.Context, id string, patch types.StudentPatch) (types.Student, error) {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: begin: %w", err)
	}
	defer tx.Rollback()

	student, err := scanStudent(tx.QueryRowContext(ctx, selectColumns+" WHERE id = ? LIMIT 1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Student{}, storage.ErrNotFound
		}
		return types.Student{}, fmt.Errorf("UpdateStudentByID: scan: %w", err)
	}

	patch.Apply(&student)
	student.UpdatedAt = s.timestamp()

	grades, err := encodeGrades(student.Grades)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE students SET name = ?, age = ?, course = ?, grades = ?, updated_at = ? WHERE id = ?",
		student.Name, student.Age, student.Course, grades, student.UpdatedAt.UnixMilli(), id,
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudentByID: commit: %w", err)
	}

	return student, nil
}

// DeleteStudentByID removes a student row by id.
func (s *SQLite) DeleteStudentByID(ctx context.Context, id string) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM students WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DeleteStudentByID: rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Ping checks that the database file can be reached.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

// Close closes the connection pool.
func (s *SQLite) Close(_ context.Context) error {
	return s.Db.Close()
}

func derefAge(age *int) int {
	if age == nil {
		return 0
	}
	return *age
}
