package repository

import "errors"

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert collides with an
	// existing primary key (a concurrent writer won the race).
	ErrDuplicate = errors.New("record already exists")

	// ErrConflict is returned when a revision-checked update loses an
	// optimistic-concurrency race. Callers re-read and retry, bounded.
	ErrConflict = errors.New("revision conflict")
)
