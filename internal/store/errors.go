package store

import "errors"

var (
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
	// ErrUnavailable means the backing store could not be reached. Callers may retry.
	ErrUnavailable = errors.New("store unavailable")
)
