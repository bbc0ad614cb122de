package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// Append coalesces the edit into the change log
func (u *UserStore) Append(ctx context.Context, record *models.Record, op models.Operation) (*models.ChangeEntry, error) {
	var entry *models.ChangeEntry
	err := u.update(func(b *userBuckets) error {
		var err error
		entry, err = b.append(record, op, u.s.clock.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append change: %w", err)
	}
	return entry, nil
}

// append заменяет активный элемент записи новым с новым seq.
// BaseVersion и исходная операция сохраняются через Fold.
func (b *userBuckets) append(record *models.Record, op models.Operation, now time.Time) (*models.ChangeEntry, error) {
	entry := &models.ChangeEntry{
		RecordID:  record.ID,
		Op:        op,
		Snapshot:  *record.Clone(),
		CreatedAt: now,
	}
	if op != models.OpCreate {
		entry.BaseVersion = record.Version
	}

	prev, err := b.pendingEntry(record.ID)
	if err != nil && !errors.Is(err, storage.ErrEntryNotFound) {
		return nil, err
	}
	if prev != nil {
		entry.Op = prev.Op.Fold(op)
		entry.BaseVersion = prev.BaseVersion
		entry.CreatedAt = prev.CreatedAt
		if err := b.changes.Delete(seqKey(prev.Seq)); err != nil {
			return nil, fmt.Errorf("failed to remove superseded entry: %w", err)
		}
	}

	seq, err := b.changes.NextSequence()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate sequence: %w", err)
	}
	entry.Seq = seq

	if err := b.putEntry(entry); err != nil {
		return nil, err
	}
	if err := b.pending.Put([]byte(record.ID), seqKey(seq)); err != nil {
		return nil, fmt.Errorf("failed to index entry: %w", err)
	}
	return entry, nil
}

func (b *userBuckets) putEntry(entry *models.ChangeEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal change entry: %w", err)
	}
	if err := b.changes.Put(seqKey(entry.Seq), data); err != nil {
		return fmt.Errorf("failed to save change entry: %w", err)
	}
	return nil
}

func (b *userBuckets) getEntry(seq uint64) (*models.ChangeEntry, error) {
	data := b.changes.Get(seqKey(seq))
	if data == nil {
		return nil, storage.ErrEntryNotFound
	}
	entry := &models.ChangeEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change entry: %w", err)
	}
	return entry, nil
}

func (b *userBuckets) pendingEntry(recordID string) (*models.ChangeEntry, error) {
	key := b.pending.Get([]byte(recordID))
	if key == nil {
		return nil, storage.ErrEntryNotFound
	}
	return b.getEntry(binary.BigEndian.Uint64(key))
}

// removeEntry удаляет элемент и индекс, если индекс указывает на него
func (b *userBuckets) removeEntry(entry *models.ChangeEntry) error {
	if err := b.changes.Delete(seqKey(entry.Seq)); err != nil {
		return fmt.Errorf("failed to delete change entry: %w", err)
	}
	key := b.pending.Get([]byte(entry.RecordID))
	if key != nil && binary.BigEndian.Uint64(key) == entry.Seq {
		if err := b.pending.Delete([]byte(entry.RecordID)); err != nil {
			return fmt.Errorf("failed to delete pending index: %w", err)
		}
	}
	return nil
}

func (b *userBuckets) rebase(recordID string, baseVersion int64) error {
	entry, err := b.pendingEntry(recordID)
	if err != nil {
		return err
	}
	entry.BaseVersion = baseVersion
	if entry.Snapshot.Version < baseVersion {
		entry.Snapshot.Version = baseVersion
	}
	return b.putEntry(entry)
}

// PeekBatch returns up to maxN due entries in seq order
func (u *UserStore) PeekBatch(ctx context.Context, maxN int, dueBy time.Time) ([]*models.ChangeEntry, error) {
	var entries []*models.ChangeEntry

	err := u.view(func(b *userBuckets) error {
		c := b.changes.Cursor()
		for k, v := c.First(); k != nil && len(entries) < maxN; k, v = c.Next() {
			var entry models.ChangeEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal change entry: %w", err)
			}
			if entry.IsDue(dueBy) {
				entries = append(entries, &entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to peek change log: %w", err)
	}

	return entries, nil
}

// Acknowledge removes the entry after a successful push
func (u *UserStore) Acknowledge(ctx context.Context, seq uint64) error {
	return u.update(func(b *userBuckets) error {
		entry, err := b.getEntry(seq)
		if err != nil {
			return err
		}
		return b.removeEntry(entry)
	})
}

// MarkFailed schedules the entry for a later retry
func (u *UserStore) MarkFailed(ctx context.Context, seq uint64, now time.Time, cause error) (*models.ChangeEntry, error) {
	var entry *models.ChangeEntry
	err := u.update(func(b *userBuckets) error {
		var err error
		entry, err = b.getEntry(seq)
		if err != nil {
			return err
		}

		entry.AttemptCount++
		entry.NextRetryAt = now.Add(u.s.policy.Delay(entry.AttemptCount))
		if cause != nil {
			entry.LastError = cause.Error()
		}
		return b.putEntry(entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Park excludes the entry from further pushes until the record is edited again
func (u *UserStore) Park(ctx context.Context, seq uint64, reason string) error {
	return u.update(func(b *userBuckets) error {
		entry, err := b.getEntry(seq)
		if err != nil {
			return err
		}
		entry.Parked = true
		entry.LastError = reason
		return b.putEntry(entry)
	})
}

// PendingCount returns the number of queued and parked entries
func (u *UserStore) PendingCount(ctx context.Context) (pending, parked int, err error) {
	err = u.view(func(b *userBuckets) error {
		return b.changes.ForEach(func(k, v []byte) error {
			var entry models.ChangeEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal change entry: %w", err)
			}
			if entry.Parked {
				parked++
			} else {
				pending++
			}
			return nil
		})
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count change log: %w", err)
	}
	return pending, parked, nil
}

// Rebase updates the base version of the record's outstanding entry
func (u *UserStore) Rebase(ctx context.Context, recordID string, baseVersion int64) error {
	return u.update(func(b *userBuckets) error {
		return b.rebase(recordID, baseVersion)
	})
}

// PendingFor returns the outstanding entry for the record
func (u *UserStore) PendingFor(ctx context.Context, recordID string) (*models.ChangeEntry, error) {
	var entry *models.ChangeEntry
	err := u.view(func(b *userBuckets) error {
		var err error
		entry, err = b.pendingEntry(recordID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}
