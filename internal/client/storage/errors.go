package storage

import (
	"errors"

	"github.com/iudanet/studysync/internal/syncerr"
)

// Common client storage errors
var (
	// ErrAuthNotFound indicates that no authentication data exists
	ErrAuthNotFound = errors.New("authentication data not found")

	// ErrEntryNotFound indicates that change entry was removed or superseded
	ErrEntryNotFound = syncerr.ErrEntryNotFound

	// ErrRecordNotFound indicates that record does not exist locally
	ErrRecordNotFound = syncerr.ErrRecordNotFound

	// ErrUserRequired indicates that a user-scoped store was requested without a user
	ErrUserRequired = errors.New("user id is required")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
