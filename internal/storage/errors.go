package storage

import "errors"

// Storage errors for the append-only ledger stores.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a record whose key
	// already exists. Ledger stores never update in place.
	ErrDuplicateKey = errors.New("duplicate key: ledger store does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
