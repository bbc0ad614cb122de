package storage

import (
	"context"

	"github.com/iudanet/studysync/internal/models"
)

// UserStores opens the local store of a single user.
// Records and change logs of different users sharing one database never mix.
type UserStores interface {
	// ForUser returns the store of the user, creating it on first use
	// Returns ErrUserRequired for an empty user ID
	ForUser(ctx context.Context, userID string) (LocalStore, error)
}

// LocalStore defines the local record table of one user together with its change log
// All multi-step writes are atomic: a record and its change entry are never
// persisted separately.
type LocalStore interface {
	ChangeLog
	CursorStorage

	// Read returns the record including tombstones
	// Returns ErrRecordNotFound if it doesn't exist
	Read(ctx context.Context, id string) (*models.Record, error)

	// List returns all records of the kind including tombstones
	// Empty kind returns every record
	List(ctx context.Context, kind string) ([]*models.Record, error)

	// SaveLocal upserts a locally edited record and appends its change entry
	SaveLocal(ctx context.Context, record *models.Record, op models.Operation) (*models.ChangeEntry, error)

	// ApplyRemote upserts a record received from the remote store
	// If dropPending is set the outstanding entry for the record is removed
	ApplyRemote(ctx context.Context, record *models.Record, dropPending bool) error

	// ApplyRemoteOver applies a remote record that won against the entry seq seen by
	// the caller (0 if there was none). If a newer local edit was queued meanwhile,
	// the record is left untouched, that edit is rebased onto the remote version
	// and false is returned.
	ApplyRemoteOver(ctx context.Context, record *models.Record, seenSeq uint64) (bool, error)

	// AcknowledgeApplied records a successful push of entry seq at the given version.
	// The local record version is raised, the entry is removed, or rebased when a
	// newer local edit superseded it. In the latter case ErrEntryNotFound is
	// returned after the version bump is committed.
	AcknowledgeApplied(ctx context.Context, recordID string, seq uint64, version int64) error
}
