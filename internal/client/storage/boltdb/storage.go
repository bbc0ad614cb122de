package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/clock"
)

var (
	// BoltDB bucket names
	bucketAuth     = []byte("auth")
	bucketUsers    = []byte("users") // user id -> вложенные buckets пользователя
	bucketMetadata = []byte("metadata")

	// вложенные buckets пользователя
	bucketRecords = []byte("records")
	bucketChanges = []byte("changes")
	bucketPending = []byte("pending") // record id -> seq активного элемента журнала
)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db     *bbolt.DB
	clock  clock.Clock
	policy storage.RetryPolicy
}

// Option настраивает Storage
type Option func(*Storage)

// WithClock задает источник времени для CreatedAt элементов журнала
func WithClock(c clock.Clock) Option {
	return func(s *Storage) {
		s.clock = c
	}
}

// WithRetryPolicy задает задержки повторов для MarkFailed
func WithRetryPolicy(p storage.RetryPolicy) Option {
	return func(s *Storage) {
		s.policy = p
	}
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	// Открываем BoltDB
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	s := &Storage{
		db:     db,
		clock:  clock.Real(),
		policy: storage.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAuth, bucketUsers, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Storage) update(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.Update(fn)
}

func (s *Storage) view(fn func(tx *bbolt.Tx) error) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	return s.db.View(fn)
}

var (
	_ storage.UserStores    = (*Storage)(nil)
	_ storage.CursorStorage = (*Storage)(nil)
	_ storage.AuthStorage   = (*Storage)(nil)
	_ storage.LocalStore    = (*UserStore)(nil)
)
