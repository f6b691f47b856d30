// Package types holds the shared data structures used across the
// application. Handlers, storage backends and tests all import types
// without depending on each other.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aanand-mishra/students-api/internal/validation"
)

// Student is a persisted student record as returned to API clients.
//
// ID, CreatedAt and UpdatedAt are managed by the storage layer; clients
// cannot set them.
type Student struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	Course    string    `json:"course"`
	Grades    []float64 `json:"grades"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StudentInput is the body of POST /students and PUT /students/{id}.
//
// Age is a pointer so that a missing age can be told apart from age 0,
// which is valid.
type StudentInput struct {
	Name   string    `json:"name"   validate:"required,min=2"`
	Age    *int      `json:"age"    validate:"required,gte=0,lte=120"`
	Course string    `json:"course" validate:"required"`
	Grades []float64 `json:"grades" validate:"dive,gte=0,lte=10"`
}

// Validate trims the text fields, defaults Grades to an empty list and then
// checks every field rule.
func (in *StudentInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Course = strings.TrimSpace(in.Course)
	if in.Grades == nil {
		in.Grades = []float64{}
	}
	return validation.Struct(in)
}

// StudentPatch is the body of PATCH /students/{id}. A nil field was not
// supplied by the client and is left untouched.
type StudentPatch struct {
	Name   *string    `json:"name"   validate:"omitnil,min=2"`
	Age    *int       `json:"age"    validate:"omitnil,gte=0,lte=120"`
	Course *string    `json:"course" validate:"omitnil,min=1"`
	Grades *[]float64 `json:"grades" validate:"omitnil,dive,gte=0,lte=10"`

	// nulls lists the required fields sent as an explicit JSON null.
	nulls []string
}

// requiredFields are the json names that cannot be cleared with null.
var requiredFields = []string{"name", "age", "course"}

type studentPatch StudentPatch

// UnmarshalJSON decodes the patch and records which keys were sent as null,
// since a nil pointer alone cannot tell null apart from an absent key.
// "grades": null clears the list.
func (p *StudentPatch) UnmarshalJSON(data []byte) error {
	var patch studentPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = StudentPatch(patch)
	p.nulls = nil
	for key, value := range raw {
		if !bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			continue
		}
		// encoding/json matches keys case-insensitively
		if strings.EqualFold(key, "grades") {
			p.Grades = &[]float64{}
			continue
		}
		for _, field := range requiredFields {
			if strings.EqualFold(key, field) {
				p.nulls = append(p.nulls, field)
			}
		}
	}
	return nil
}

// Validate trims the supplied text fields and checks the rules of every
// supplied field. A required field sent as null fails with "is required".
func (p *StudentPatch) Validate() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if p.Course != nil {
		course := strings.TrimSpace(*p.Course)
		p.Course = &course
	}

	var errs validation.Errors
	for _, field := range requiredFields {
		for _, null := range p.nulls {
			if null == field {
				errs = append(errs, validation.FieldError{Field: field, Message: "is required"})
				break
			}
		}
	}

	if err := validation.Struct(p); err != nil {
		var verrs validation.Errors
		if !errors.As(err, &verrs) {
			return err
		}
		errs = append(errs, verrs...)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// IsEmpty reports whether no field was supplied. An empty patch only
// refreshes updatedAt.
func (p StudentPatch) IsEmpty() bool {
	return p.Name == nil && p.Age == nil && p.Course == nil && p.Grades == nil
}

// Apply copies the supplied fields onto s.
func (p StudentPatch) Apply(s *Student) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Age != nil {
		s.Age = *p.Age
	}
	if p.Course != nil {
		s.Course = *p.Course
	}
	if p.Grades != nil {
		s.Grades = append([]float64{}, (*p.Grades)...)
	}
}
