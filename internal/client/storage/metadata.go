package storage

import (
	"context"

	"github.com/iudanet/studysync/internal/models"
)

// CursorStorage defines interface for storing the pull cursor per user
type CursorStorage interface {
	// GetCursor returns the last fully applied pull cursor
	// Returns empty cursor if no pull has completed yet
	GetCursor(ctx context.Context, userID string) (models.Cursor, error)

	// SaveCursor stores the cursor after a pull page is applied
	SaveCursor(ctx context.Context, userID string, cursor models.Cursor) error
}
