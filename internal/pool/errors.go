package pool

import "errors"

var (
	// ErrNotFound marks a persisted record that does not exist yet.
	ErrNotFound = errors.New("record not found")
	// ErrStorageUnavailable wraps read/write failures of persisted state.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
