// Package student contains the HTTP handlers for the Student resource.
//
// Each exported function is a factory: it is called once at startup with
// the storage dependency and returns the http.HandlerFunc the router calls
// on every request.
//
//	router.HandleFunc("POST /students", student.New(storage))
package student

import (
	"errors"
	"net/http"

	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/types"
	"github.com/aanand-mishra/students-api/internal/utils/response"
	"github.com/rs/zerolog"
)

// New handles POST /students.
//
// Request body:
//
//	{ "name": "Ana", "age": 21, "course": "Math", "grades": [8, 9.5] }
//
// 201 with the created student, 400 on an empty/malformed body or a failed
// rule, 500 on a store error.
func New(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := zerolog.Ctx(r.Context())
		log.Info().Msg("creating a student")

		var in types.StudentInput
		if !decodeAndValidate(w, r, &in) {
			return
		}

		student, err := storage.CreateStudent(r.Context(), in)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		log.Info().Str("id", student.ID).Msg("student created")
		response.WriteJSON(w, http.StatusCreated, student)
	}
}

// GetList handles GET /students. An empty collection is returned as [].
func GetList(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("getting all students")

		students, err := storage.GetStudents(r.Context())
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// GetByID handles GET /students/{id}.
//
// 400 if id is not an ObjectID, 404 if no student has it.
func GetByID(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		zerolog.Ctx(r.Context()).Info().Str("id", id).Msg("getting a student")

		student, err := storage.GetStudentByID(r.Context(), id)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// Update handles PUT /students/{id} and replaces the whole record.
//
// Every field is validated as on create. Omitted grades are reset to [].
func Update(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		log := zerolog.Ctx(r.Context())
		log.Info().Str("id", id).Msg("replacing a student")

		var in types.StudentInput
		if !decodeAndValidate(w, r, &in) {
			return
		}

		updated, err := storage.ReplaceStudentByID(r.Context(), id, in)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		log.Info().Str("id", id).Msg("student replaced")
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Patch handles PATCH /students/{id}. Only supplied fields are validated
// and changed. A required field sent as null is rejected; "grades": null
// clears the list.
func Patch(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		log := zerolog.Ctx(r.Context())
		log.Info().Str("id", id).Msg("patching a student")

		var patch types.StudentPatch
		if !decodeAndValidate(w, r, &patch) {
			return
		}
		if patch.IsEmpty() {
			log.Debug().Str("id", id).Msg("empty patch, only updatedAt changes")
		}

		updated, err := storage.UpdateStudentByID(r.Context(), id, patch)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}

		log.Info().Str("id", id).Msg("student patched")
		response.WriteJSON(w, http.StatusOK, updated)
	}
}

// Delete handles DELETE /students/{id}.
//
// 200 { "ok": true }, or 404 when the student does not exist (including a
// second delete of the same id).
func Delete(storage storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		log := zerolog.Ctx(r.Context())
		log.Info().Str("id", id).Msg("deleting a student")

		if err := storage.DeleteStudentByID(r.Context(), id); err != nil {
			writeStoreError(w, r, err)
			return
		}

		log.Info().Str("id", id).Msg("student deleted")
		response.WriteJSON(w, http.StatusOK, response.Ack{OK: true})
	}
}

// writeStoreError maps storage.ErrNotFound to 404 and anything else to 500
// with the driver's message.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		response.WriteJSON(w, http.StatusNotFound, response.GeneralError(storage.ErrNotFound))
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage error")
	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
}
