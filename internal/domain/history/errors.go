package history

import "errors"

var (
	// ErrNotFound means no record with the given id exists for the tenant.
	ErrNotFound = errors.New("history record not found")
	// ErrNotPending means the record already left the pending state.
	ErrNotPending = errors.New("history record is not pending")
)
