package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/iudanet/studysync/internal/models"
)

// RecordStorage defines interface for synchronized records
// Every applied mutation moves the record to the next position of the user's change stream
type RecordStorage interface {
	// ApplyMutation stores the record if the stored version equals baseVersion
	// Returns *ConflictError with the stored record otherwise
	ApplyMutation(ctx context.Context, userID string, record *models.Record, baseVersion int64) (*models.StoredRecord, error)

	// ListSince returns up to limit records changed after the given stream position, oldest first
	ListSince(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.StoredRecord, error)

	// GetRecord returns the stored record
	// Returns ErrRecordNotFound if it doesn't exist
	GetRecord(ctx context.Context, userID, recordID string) (*models.StoredRecord, error)
}

// ConflictError is returned when a mutation was based on a stale version
type ConflictError struct {
	Current *models.StoredRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on record %s: stored version %d", e.Current.ID, e.Current.Version)
}

// Is makes errors.Is(err, ErrVersionConflict) match
func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// PlanMutation decides how a mutation applies to the stored record (nil if none).
// It returns the record to store without Seq, or replay=true when the same
// content is already stored (a retried request whose response was lost).
func PlanMutation(current *models.StoredRecord, userID string, record *models.Record, baseVersion int64) (next *models.StoredRecord, replay bool, err error) {
	if current != nil && current.Version != baseVersion {
		if sameContent(&current.Record, record) && current.Version > baseVersion {
			return current, true, nil
		}
		return nil, false, &ConflictError{Current: current}
	}

	var currentVersion int64
	if current != nil {
		currentVersion = current.Version
	}

	stored := &models.StoredRecord{
		UserID: userID,
		Record: *record.Clone(),
	}
	stored.Version = max(currentVersion, record.Version) + 1
	return stored, false, nil
}

func sameContent(a, b *models.Record) bool {
	return a.Kind == b.Kind && a.Deleted == b.Deleted && bytes.Equal(a.Payload, b.Payload)
}
