package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrValidation          = errors.New("validation failed")
)

// NotFoundError reports a stale id. It matches ErrNotFound.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports malformed input. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConstraintError reports a rejected operation. It matches ErrConstraintViolation.
type ConstraintError struct {
	Reason string
}

func (e ConstraintError) Error() string {
	return e.Reason
}

func (e ConstraintError) Is(target error) bool {
	return target == ErrConstraintViolation
}

func NotFound(entity string, id any) error {
	return NotFoundError{Entity: entity, ID: id}
}

func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
