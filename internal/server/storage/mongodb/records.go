package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/server/storage"
)

// recordDocument представление записи в коллекции.
// _id составной, поэтому повторная вставка той же записи дает duplicate key.
type recordDocument struct {
	UpdatedAt time.Time `bson:"updated_at"`
	Key       string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	ID        string    `bson:"id"`
	Kind      string    `bson:"kind"`
	Payload   string    `bson:"payload"`
	Version   int64     `bson:"version"`
	Seq       int64     `bson:"seq"`
	Deleted   bool      `bson:"deleted"`
}

type counterDocument struct {
	UserID string `bson:"_id"`
	Seq    int64  `bson:"seq"`
}

func recordKey(userID, recordID string) string {
	return userID + "/" + recordID
}

func toDocument(r *models.StoredRecord) recordDocument {
	return recordDocument{
		Key:       recordKey(r.UserID, r.ID),
		UserID:    r.UserID,
		ID:        r.ID,
		Kind:      r.Kind,
		Payload:   string(r.Payload),
		Version:   r.Version,
		Seq:       r.Seq,
		Deleted:   r.Deleted,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (d *recordDocument) toModel() *models.StoredRecord {
	rec := &models.StoredRecord{
		UserID: d.UserID,
		Seq:    d.Seq,
	}
	rec.ID = d.ID
	rec.Kind = d.Kind
	rec.Version = d.Version
	rec.Deleted = d.Deleted
	rec.UpdatedAt = d.UpdatedAt.UTC()
	if d.Payload != "" {
		rec.Payload = json.RawMessage(d.Payload)
	}
	return rec
}

// Store реализует storage.RecordStorage поверх MongoDB
type Store struct {
	records  Collection
	counters Collection
	logger   *slog.Logger
	// mu упорядочивает выдачу seq и запись: читатель не должен увидеть seq N+1 раньше N
	mu sync.Mutex
}

var _ storage.RecordStorage = (*Store)(nil)

// New creates a new MongoDB record store
func New(records, counters Collection, logger *slog.Logger) *Store {
	return &Store{
		records:  records,
		counters: counters,
		logger:   logger,
	}
}

// ApplyMutation stores the record if the stored version equals baseVersion
func (s *Store) ApplyMutation(ctx context.Context, userID string, record *models.Record, baseVersion int64) (*models.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.find(ctx, userID, record.ID)
	switch {
	case errors.Is(err, storage.ErrRecordNotFound):
		current = nil
	case err != nil:
		return nil, err
	}

	next, replay, err := storage.PlanMutation(current, userID, record, baseVersion)
	if err != nil {
		return nil, err
	}
	if replay {
		return next, nil
	}

	next.Seq, err = s.nextSeq(ctx, userID)
	if err != nil {
		return nil, err
	}

	doc := toDocument(next)
	if current == nil {
		_, err = s.records.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			// запись создана в обход этого процесса
			return nil, s.conflict(ctx, userID, record.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert record: %w", err)
		}
		return next, nil
	}

	filter := bson.M{"_id": doc.Key, "version": current.Version}
	res, err := s.records.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to replace record: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, s.conflict(ctx, userID, record.ID)
	}

	return next, nil
}

// ListSince returns up to limit records changed after afterSeq, oldest first
func (s *Store) ListSince(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.StoredRecord, error) {
	filter := bson.M{"user_id": userID, "seq": bson.M{"$gt": afterSeq}}
	opts := options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.records.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	records := make([]*models.StoredRecord, 0, len(docs))
	for i := range docs {
		records = append(records, docs[i].toModel())
	}
	return records, nil
}

// GetRecord returns the stored record
func (s *Store) GetRecord(ctx context.Context, userID, recordID string) (*models.StoredRecord, error) {
	return s.find(ctx, userID, recordID)
}

func (s *Store) find(ctx context.Context, userID, recordID string) (*models.StoredRecord, error) {
	var doc recordDocument
	err := s.records.FindOne(ctx, bson.M{"_id": recordKey(userID, recordID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return doc.toModel(), nil
}

func (s *Store) conflict(ctx context.Context, userID, recordID string) error {
	current, err := s.find(ctx, userID, recordID)
	if err != nil {
		return fmt.Errorf("failed to read conflicting record: %w", err)
	}
	s.logger.Debug("Concurrent write detected",
		slog.String("record_id", recordID),
		slog.Int64("version", current.Version))
	return &storage.ConflictError{Current: current}
}

// nextSeq атомарно увеличивает счетчик потока пользователя
func (s *Store) nextSeq(ctx context.Context, userID string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter counterDocument
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	return counter.Seq, nil
}
