// Package storage defines the Storage interface, the contract any database
// backend must satisfy to serve the students API.
//
// Handlers depend only on this interface. The MongoDB backend is the
// default; the SQLite backend keeps everything in one local file and is
// handy for development. Both hand out ObjectID identifiers, so the HTTP
// contract does not change with the backend.
package storage

import (
	"context"
	"errors"

	"github.com/aanand-mishra/students-api/internal/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when no student matches the given id.
var ErrNotFound = errors.New("student not found")

// Storage is the database contract.
type Storage interface {
	// CreateStudent inserts a validated student and returns the stored
	// record with its generated id and timestamps.
	CreateStudent(ctx context.Context, in types.StudentInput) (types.Student, error)

	// GetStudentByID returns ErrNotFound if id does not exist.
	GetStudentByID(ctx context.Context, id string) (types.Student, error)

	// GetStudents returns every student. The slice is empty, not nil, when
	// there are none.
	GetStudents(ctx context.Context) ([]types.Student, error)

	// ReplaceStudentByID overwrites every field of an existing student with
	// in. createdAt is kept, updatedAt is refreshed.
	ReplaceStudentByID(ctx context.Context, id string, in types.StudentInput) (types.Student, error)

	// UpdateStudentByID changes only the fields supplied in patch.
	UpdateStudentByID(ctx context.Context, id string, patch types.StudentPatch) (types.Student, error)

	// DeleteStudentByID removes a student permanently. Returns ErrNotFound
	// if nothing was deleted.
	DeleteStudentByID(ctx context.Context, id string) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection pool.
	Close(ctx context.Context) error
}

// IsValidID reports whether id is a 24 character hex ObjectID. Handlers
// reject anything else before calling the store.
func IsValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}

// NewID returns a fresh ObjectID in its hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
