package store

import "errors"

var (
	// ErrValidation indicates malformed input: bad username shape,
	// out-of-range scores or thresholds.
	ErrValidation = errors.New("store: validation failed")
	// ErrConflict indicates a duplicate username.
	ErrConflict = errors.New("store: already exists")
	// ErrNotFound indicates an unknown user, invite or event.
	ErrNotFound = errors.New("store: not found")
	// ErrSchema indicates an import with the wrong version or shape.
	ErrSchema = errors.New("store: schema mismatch")
)
