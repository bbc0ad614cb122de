package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/server/storage"
)

const recordColumns = `user_id, id, kind, payload, version, deleted, updated_at, seq`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.StoredRecord, error) {
	rec := &models.StoredRecord{}
	var payload []byte
	err := row.Scan(
		&rec.UserID,
		&rec.ID,
		&rec.Kind,
		&payload,
		&rec.Version,
		&rec.Deleted,
		&rec.UpdatedAt,
		&rec.Seq,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		rec.Payload = payload
	}
	return rec, nil
}

// ApplyMutation stores the record if the stored version equals baseVersion
func (s *Storage) ApplyMutation(ctx context.Context, userID string, record *models.Record, baseVersion int64) (*models.StoredRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanRecord(tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE user_id = ? AND id = ?`, userID, record.ID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = nil
	case err != nil:
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	next, replay, err := storage.PlanMutation(current, userID, record, baseVersion)
	if err != nil {
		return nil, err
	}
	if replay {
		return next, nil
	}

	// позиция в потоке пользователя: записи не удаляются, поэтому максимум seq монотонен
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM records WHERE user_id = ?`, userID).Scan(&next.Seq); err != nil {
		return nil, fmt.Errorf("failed to allocate sequence: %w", err)
	}

	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, id) DO UPDATE SET
			kind = excluded.kind,
			payload = excluded.payload,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at,
			seq = excluded.seq
	`
	_, err = tx.ExecContext(ctx, query,
		next.UserID,
		next.ID,
		next.Kind,
		[]byte(next.Payload),
		next.Version,
		next.Deleted,
		next.UpdatedAt.UTC(),
		next.Seq,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return next, nil
}

// ListSince returns up to limit records changed after afterSeq, oldest first
func (s *Storage) ListSince(ctx context.Context, userID string, afterSeq int64, limit int) ([]*models.StoredRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE user_id = ? AND seq > ? ORDER BY seq LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, userID, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*models.StoredRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// GetRecord returns the stored record
func (s *Storage) GetRecord(ctx context.Context, userID, recordID string) (*models.StoredRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE user_id = ? AND id = ?`, userID, recordID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}
