package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

func (b *userBuckets) putRecord(record *models.Record) error {
	return putJSON(b.records, []byte(record.ID), record)
}

func (b *userBuckets) getRecord(id string) (*models.Record, error) {
	record := &models.Record{}
	found, err := getJSON(b.records, []byte(id), record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrRecordNotFound
	}
	return record, nil
}

// Read returns the record by ID, tombstones included
func (u *UserStore) Read(ctx context.Context, id string) (*models.Record, error) {
	var record *models.Record
	err := u.view(func(b *userBuckets) error {
		var err error
		record, err = b.getRecord(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all records of the kind, tombstones included
func (u *UserStore) List(ctx context.Context, kind string) ([]*models.Record, error) {
	var records []*models.Record

	err := u.view(func(b *userBuckets) error {
		return b.records.ForEach(func(k, v []byte) error {
			var record models.Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal record: %w", err)
			}
			if kind == "" || record.Kind == kind {
				records = append(records, &record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	return records, nil
}

// SaveLocal stores a local edit and its change entry in one transaction
func (u *UserStore) SaveLocal(ctx context.Context, record *models.Record, op models.Operation) (*models.ChangeEntry, error) {
	var entry *models.ChangeEntry
	err := u.update(func(b *userBuckets) error {
		if err := b.putRecord(record); err != nil {
			return err
		}
		var err error
		entry, err = b.append(record, op, u.s.clock.Now())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save local record: %w", err)
	}
	return entry, nil
}

// ApplyRemote stores a record received from the remote store
func (u *UserStore) ApplyRemote(ctx context.Context, record *models.Record, dropPending bool) error {
	err := u.update(func(b *userBuckets) error {
		if err := b.putRecord(record); err != nil {
			return err
		}
		if !dropPending {
			return nil
		}

		entry, err := b.pendingEntry(record.ID)
		if errors.Is(err, storage.ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return b.removeEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to apply remote record: %w", err)
	}
	return nil
}

// ApplyRemoteOver applies a winning remote record unless a newer local edit appeared
func (u *UserStore) ApplyRemoteOver(ctx context.Context, record *models.Record, seenSeq uint64) (bool, error) {
	applied := false

	err := u.update(func(b *userBuckets) error {
		entry, err := b.pendingEntry(record.ID)
		switch {
		case errors.Is(err, storage.ErrEntryNotFound):
			entry = nil
		case err != nil:
			return err
		}

		if entry != nil && entry.Seq != seenSeq {
			return b.rebase(record.ID, record.Version)
		}

		if err := b.putRecord(record); err != nil {
			return err
		}
		applied = true
		if entry != nil {
			return b.removeEntry(entry)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to apply remote record: %w", err)
	}
	return applied, nil
}

// AcknowledgeApplied raises the local version after a successful push
func (u *UserStore) AcknowledgeApplied(ctx context.Context, recordID string, seq uint64, version int64) error {
	superseded := false

	err := u.update(func(b *userBuckets) error {
		record, err := b.getRecord(recordID)
		switch {
		case err == nil:
			if record.Version < version {
				record.Version = version
				if err := b.putRecord(record); err != nil {
					return err
				}
			}
		case !errors.Is(err, storage.ErrRecordNotFound):
			return err
		}

		entry, err := b.getEntry(seq)
		if err == nil {
			return b.removeEntry(entry)
		}
		if !errors.Is(err, storage.ErrEntryNotFound) {
			return err
		}

		// Пока шла отправка, запись успели изменить: новая правка опирается на новую версию
		superseded = true
		next, err := b.pendingEntry(recordID)
		if errors.Is(err, storage.ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		next.BaseVersion = version
		if next.Snapshot.Version < version {
			next.Snapshot.Version = version
		}
		if next.Op == models.OpCreate {
			next.Op = models.OpUpdate
		}
		return b.putEntry(next)
	})
	if err != nil {
		return fmt.Errorf("failed to acknowledge applied entry: %w", err)
	}
	if superseded {
		return storage.ErrEntryNotFound
	}
	return nil
}
