package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/client/storage"
)

// одна сессия на файл базы
var sessionKey = []byte("session")

func (s *Storage) SaveAuth(_ context.Context, auth *storage.AuthData) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket, err := bucketOf(tx, bucketAuth)
		if err != nil {
			return err
		}
		return putJSON(bucket, sessionKey, auth)
	})
}

// GetAuth возвращает ErrAuthNotFound, если вход не выполнен
func (s *Storage) GetAuth(_ context.Context) (*storage.AuthData, error) {
	var auth storage.AuthData
	err := s.view(func(tx *bbolt.Tx) error {
		bucket, err := bucketOf(tx, bucketAuth)
		if err != nil {
			return err
		}
		found, err := getJSON(bucket, sessionKey, &auth)
		if err != nil {
			return err
		}
		if !found {
			return storage.ErrAuthNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &auth, nil
}

// DeleteAuth удаляет сессию; ErrAuthNotFound если ее не было
func (s *Storage) DeleteAuth(_ context.Context) error {
	return s.update(func(tx *bbolt.Tx) error {
		bucket, err := bucketOf(tx, bucketAuth)
		if err != nil {
			return err
		}
		if bucket.Get(sessionKey) == nil {
			return storage.ErrAuthNotFound
		}
		return bucket.Delete(sessionKey)
	})
}

// IsAuthenticated не смотрит на срок access token: его обновит refresh token
func (s *Storage) IsAuthenticated(ctx context.Context) (bool, error) {
	auth, err := s.GetAuth(ctx)
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return auth.RefreshToken != "", nil
}

func bucketOf(tx *bbolt.Tx, name []byte) (*bbolt.Bucket, error) {
	bucket := tx.Bucket(name)
	if bucket == nil {
		return nil, fmt.Errorf("%s bucket not found", name)
	}
	return bucket, nil
}

func putJSON(bucket *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := bucket.Put(key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func getJSON(bucket *bbolt.Bucket, key []byte, v any) (bool, error) {
	data := bucket.Get(key)
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}
