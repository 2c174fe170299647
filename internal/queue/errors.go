package queue

import "errors"

var (
	// ErrNotFound is returned when a run or job lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrSchemaMismatch is returned by Open when the history database was
	// created by an incompatible build.
	ErrSchemaMismatch = errors.New("history schema version mismatch")
)
