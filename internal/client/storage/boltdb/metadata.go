package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/models"
)

const (
	keyCursorPrefix     = "cursor:"
	keyLastSyncedPrefix = "last_synced:"
)

func cursorKey(userID string) []byte {
	return []byte(keyCursorPrefix + userID)
}

// SaveCursor saves the pull cursor for the user
func (s *Storage) SaveCursor(ctx context.Context, userID string, cursor models.Cursor) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if err := bucket.Put(cursorKey(userID), []byte(cursor)); err != nil {
			return fmt.Errorf("failed to save cursor: %w", err)
		}

		return nil
	})
}

// GetCursor retrieves the pull cursor for the user
// Returns empty cursor if no pull has completed yet
func (s *Storage) GetCursor(ctx context.Context, userID string) (models.Cursor, error) {
	var cursor models.Cursor

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		// Если курсора нет, читаем с начала
		cursor = models.Cursor(bucket.Get(cursorKey(userID)))
		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to get cursor: %w", err)
	}

	return cursor, nil
}

// SaveLastSynced запоминает время последнего успешного цикла пользователя
func (s *Storage) SaveLastSynced(ctx context.Context, userID string, at time.Time) error {
	value, err := at.UTC().MarshalText()
	if err != nil {
		return fmt.Errorf("failed to encode sync time: %w", err)
	}

	return s.update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		return bucket.Put([]byte(keyLastSyncedPrefix+userID), value)
	})
}

// GetLastSynced возвращает время последнего успешного цикла.
// Нулевое время, если синхронизации еще не было.
func (s *Storage) GetLastSynced(ctx context.Context, userID string) (time.Time, error) {
	var at time.Time

	err := s.view(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		value := bucket.Get([]byte(keyLastSyncedPrefix + userID))
		if value == nil {
			return nil
		}
		return at.UnmarshalText(value)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return at, nil
}
