package store

import "errors"

var (
	// ErrConflict means an active booking already occupies part of the
	// blocked interval.
	ErrConflict            = errors.New("booking overlaps an active booking")
	ErrNotFound            = errors.New("booking not found")
	ErrIdempotencyConflict = errors.New("idempotency key reused for a different booking")
)
