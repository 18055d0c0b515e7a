package repo

import "errors"

var (
	// ErrNotFound is returned when a row addressed by id or username does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert would violate a unique constraint.
	ErrConflict = errors.New("conflict")
)
