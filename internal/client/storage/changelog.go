package storage

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/studysync/internal/models"
)

// ChangeLog defines the durable queue of local edits awaiting push
type ChangeLog interface {
	// Append coalesces the edit with any outstanding entry for the same record
	Append(ctx context.Context, record *models.Record, op models.Operation) (*models.ChangeEntry, error)

	// PeekBatch returns up to maxN non-parked entries due by dueBy, oldest first
	PeekBatch(ctx context.Context, maxN int, dueBy time.Time) ([]*models.ChangeEntry, error)

	// Acknowledge removes the entry
	// Returns ErrEntryNotFound if it was already removed or superseded
	Acknowledge(ctx context.Context, seq uint64) error

	// MarkFailed increments the attempt counter and schedules the next retry
	MarkFailed(ctx context.Context, seq uint64, now time.Time, cause error) (*models.ChangeEntry, error)

	// Park keeps the entry but excludes it from further pushes
	Park(ctx context.Context, seq uint64, reason string) error

	// PendingCount returns the number of queued and parked entries
	PendingCount(ctx context.Context) (pending, parked int, err error)

	// Rebase updates the base version of the outstanding entry for the record
	Rebase(ctx context.Context, recordID string, baseVersion int64) error

	// PendingFor returns the outstanding entry for the record
	// Returns ErrEntryNotFound if the record has no queued edit
	PendingFor(ctx context.Context, recordID string) (*models.ChangeEntry, error)
}

// RetryPolicy controls per-entry retry delays after transient push failures
type RetryPolicy struct {
	Base    time.Duration
	Ceiling time.Duration
}

// DefaultRetryPolicy 30s, 1m, 2m ... up to 1h
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Base: 30 * time.Second, Ceiling: time.Hour}
}

// Delay returns the delay before the attempt-th retry (attempt starts at 1)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	if p.Base <= 0 {
		return 0
	}

	b := retry.NewExponential(p.Base)
	if p.Ceiling > 0 {
		b = retry.WithCappedDuration(p.Ceiling, b)
	}

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d, _ = b.Next()
		if p.Ceiling > 0 && d >= p.Ceiling {
			break
		}
	}
	return d
}
