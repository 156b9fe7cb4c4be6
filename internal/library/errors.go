package library

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrIdentifierMismatch = errors.New("identifier mismatch")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("conflict")
)

// Entity names used in NotFoundError.
const (
	EntityAuthor = "author"
	EntityBook   = "book"
)

// NotFoundError is returned when an author or book does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IdentifierMismatchError is returned when the id in a mutation body differs
// from the id addressed by the request.
type IdentifierMismatchError struct {
	PathID int64
	BodyID int64
}

func (e *IdentifierMismatchError) Error() string {
	return fmt.Sprintf("body id %d does not match path id %d", e.BodyID, e.PathID)
}

func (e *IdentifierMismatchError) Is(target error) bool { return target == ErrIdentifierMismatch }

// ValidationError reports the first field of a draft that breaks a constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError is returned when a mutation would duplicate existing state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func authorNotFound(id int64) error { return &NotFoundError{Entity: EntityAuthor, ID: id} }

func bookNotFound(id int64) error { return &NotFoundError{Entity: EntityBook, ID: id} }
