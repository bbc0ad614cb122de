package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

// UserStore записи и журнал изменений одного пользователя.
// Данные лежат во вложенных buckets users/<user id>/{records,changes,pending}.
type UserStore struct {
	s      *Storage
	userID string
}

// userBuckets buckets пользователя внутри одной транзакции
type userBuckets struct {
	records *bbolt.Bucket
	changes *bbolt.Bucket
	pending *bbolt.Bucket
}

// ForUser implements storage.UserStores
func (s *Storage) ForUser(ctx context.Context, userID string) (storage.LocalStore, error) {
	return s.User(ctx, userID)
}

// User открывает раздел пользователя, создавая его при первом обращении
func (s *Storage) User(_ context.Context, userID string) (*UserStore, error) {
	if userID == "" {
		return nil, storage.ErrUserRequired
	}

	exists := false
	err := s.view(func(tx *bbolt.Tx) error {
		exists = tx.Bucket(bucketUsers).Bucket([]byte(userID)) != nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		err = s.update(func(tx *bbolt.Tx) error {
			user, err := tx.Bucket(bucketUsers).CreateBucketIfNotExists([]byte(userID))
			if err != nil {
				return err
			}
			for _, name := range [][]byte{bucketRecords, bucketChanges, bucketPending} {
				if _, err := user.CreateBucketIfNotExists(name); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create user store: %w", err)
		}
	}

	return &UserStore{s: s, userID: userID}, nil
}

// UserID возвращает владельца раздела
func (u *UserStore) UserID() string {
	return u.userID
}

func (u *UserStore) buckets(tx *bbolt.Tx) (*userBuckets, error) {
	user := tx.Bucket(bucketUsers).Bucket([]byte(u.userID))
	if user == nil {
		return nil, fmt.Errorf("store of user %s not found", u.userID)
	}
	return &userBuckets{
		records: user.Bucket(bucketRecords),
		changes: user.Bucket(bucketChanges),
		pending: user.Bucket(bucketPending),
	}, nil
}

func (u *UserStore) update(fn func(b *userBuckets) error) error {
	return u.s.update(func(tx *bbolt.Tx) error {
		b, err := u.buckets(tx)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func (u *UserStore) view(fn func(b *userBuckets) error) error {
	return u.s.view(func(tx *bbolt.Tx) error {
		b, err := u.buckets(tx)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

// GetCursor returns the pull cursor of the user
func (u *UserStore) GetCursor(ctx context.Context, userID string) (models.Cursor, error) {
	return u.s.GetCursor(ctx, userID)
}

// SaveCursor stores the pull cursor of the user
func (u *UserStore) SaveCursor(ctx context.Context, userID string, cursor models.Cursor) error {
	return u.s.SaveCursor(ctx, userID, cursor)
}
