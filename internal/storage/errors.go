package storage

import "errors"

// Storage errors shared by all implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists. Audit transactions are append-only and rely on
	// this for exactly-once emission.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrVersionConflict is returned when an optimistic token update
	// carries a stale expected version. Callers re-read and re-apply;
	// last-write-wins overwrites are never performed.
	ErrVersionConflict = errors.New("version conflict")
)
