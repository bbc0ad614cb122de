package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/crdt"
	"github.com/iudanet/studysync/internal/metrics"
	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/syncerr"
)

// cycle один проход push и pull от имени пользователя сессии
type cycle struct {
	*Engine
	store  storage.LocalStore
	result *CycleResult
	userID string
	epoch  uint64
}

// token возвращает токен сессии, пока цикл принадлежит ей
func (c *cycle) token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Engine.epoch != c.epoch || c.Engine.userID != c.userID {
		return "", context.Canceled
	}
	return c.Engine.token, nil
}

// push отправляет журнал изменений пачками до опустошения.
// Ошибки отдельных записей не прерывают пачку; ошибки сессии прерывают цикл.
func (c *cycle) push(ctx context.Context) error {
	seen := make(map[uint64]struct{})
	progress := 0
	var lastTransient error

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := c.store.PeekBatch(ctx, c.cfg.PushBatchSize, c.clock.Now())
		if err != nil {
			return fmt.Errorf("failed to read change log: %w", err)
		}

		fresh := batch[:0]
		for _, entry := range batch {
			if _, ok := seen[entry.Seq]; !ok {
				fresh = append(fresh, entry)
			}
		}
		if len(fresh) == 0 {
			break
		}

		for _, entry := range fresh {
			if err := ctx.Err(); err != nil {
				return err
			}
			seen[entry.Seq] = struct{}{}

			done, err := c.pushEntry(ctx, entry)
			if done {
				progress++
			}
			switch {
			case err == nil:
			case errors.Is(err, context.Canceled), syncerr.IsUnauthorized(err):
				return err
			case syncerr.IsTransient(err):
				lastTransient = err
			default:
				return err
			}
		}
	}

	if progress == 0 && lastTransient != nil {
		return fmt.Errorf("push made no progress: %w", lastTransient)
	}
	return nil
}

// pushEntry отправляет одну правку. done сообщает, что запись покинула очередь
// или была окончательно разрешена.
func (c *cycle) pushEntry(ctx context.Context, entry *models.ChangeEntry) (bool, error) {
	logger := c.logger.With(slog.String("record_id", entry.RecordID), slog.Uint64("seq", entry.Seq))

	record := *entry.Snapshot.Clone()
	baseVersion := entry.BaseVersion

	for attempt := 0; ; attempt++ {
		token, err := c.token()
		if err != nil {
			return false, err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RemoteTimeout)
		version, err := c.remote.ApplyMutation(callCtx, token, api.Mutation{Record: record, BaseVersion: baseVersion})
		cancel()

		if err == nil {
			c.result.Pushed++
			metrics.SyncPushedTotal.Inc()
			if err := c.store.AcknowledgeApplied(ctx, entry.RecordID, entry.Seq, version); err != nil {
				if errors.Is(err, storage.ErrEntryNotFound) {
					logger.Debug("Change superseded during push", slog.Int64("version", version))
					return true, nil
				}
				return true, fmt.Errorf("failed to acknowledge change: %w", err)
			}
			logger.Debug("Change pushed", slog.Int64("version", version))
			return true, nil
		}

		// отмена до ответа сервера: запись остается в очереди без изменений
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return false, err
		}

		if conflict, ok := syncerr.AsConflict(err); ok {
			remote := conflict.Current
			decision := crdt.Resolve(record, remote)
			c.result.Conflicts++
			metrics.SyncConflictsTotal.WithLabelValues(string(decision.Reason)).Inc()

			if !decision.LocalWins() {
				applied, err := c.store.ApplyRemoteOver(ctx, &remote, entry.Seq)
				if err != nil {
					return false, fmt.Errorf("failed to apply winning remote record: %w", err)
				}
				logger.Info("Remote version won conflict",
					slog.Int64("remote_version", remote.Version),
					slog.Bool("applied", applied))
				return true, nil
			}

			if attempt >= c.cfg.MaxConflictRetries {
				logger.Warn("Conflict retries exhausted", slog.Int("attempts", attempt+1))
				return false, c.markFailed(ctx, entry, err)
			}

			if err := c.store.Rebase(ctx, entry.RecordID, remote.Version); err != nil {
				if errors.Is(err, storage.ErrEntryNotFound) {
					return true, nil
				}
				return false, fmt.Errorf("failed to rebase change: %w", err)
			}
			baseVersion = remote.Version
			if record.Version < remote.Version {
				record.Version = remote.Version
			}
			logger.Debug("Local version won conflict, retrying", slog.Int64("base_version", baseVersion))
			continue
		}

		if syncerr.IsUnauthorized(err) {
			return false, err
		}

		if syncerr.IsTransient(err) {
			if ferr := c.markFailed(ctx, entry, err); ferr != nil {
				return false, ferr
			}
			return false, err
		}

		// отклонено сервером окончательно
		if err := c.store.Park(ctx, entry.Seq, err.Error()); err != nil && !errors.Is(err, storage.ErrEntryNotFound) {
			return false, fmt.Errorf("failed to park change: %w", err)
		}
		c.result.Parked++
		metrics.SyncParkedTotal.Inc()
		logger.Error("Change rejected by server", slog.Any("error", err))
		return true, nil
	}
}

func (c *cycle) markFailed(ctx context.Context, entry *models.ChangeEntry, cause error) error {
	failed, err := c.store.MarkFailed(ctx, entry.Seq, c.clock.Now(), cause)
	if err != nil {
		if errors.Is(err, storage.ErrEntryNotFound) {
			return nil
		}
		return fmt.Errorf("failed to reschedule change: %w", err)
	}
	c.result.Failed++
	metrics.SyncRetriesTotal.Inc()
	c.logger.Warn("Change push failed, rescheduled",
		slog.String("record_id", entry.RecordID),
		slog.Int("attempt", failed.AttemptCount),
		slog.Time("next_retry_at", failed.NextRetryAt),
		slog.Any("error", cause))
	return nil
}

// pull забирает изменения сервера постранично. Курсор сохраняется после каждой страницы.
func (c *cycle) pull(ctx context.Context) error {
	cursor, err := c.store.GetCursor(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("failed to load cursor: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		token, err := c.token()
		if err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.RemoteTimeout)
		page, err := c.remote.FetchSince(callCtx, token, cursor, c.cfg.PullPageSize)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to fetch remote changes: %w", err)
		}

		for i := range page.Records {
			if err := c.applyPulled(ctx, &page.Records[i]); err != nil {
				return err
			}
		}

		if page.NextCursor != "" && page.NextCursor != cursor {
			if err := c.store.SaveCursor(ctx, c.userID, page.NextCursor); err != nil {
				return fmt.Errorf("failed to save cursor: %w", err)
			}
		}

		if !page.HasMore {
			return nil
		}
		if page.NextCursor == "" || page.NextCursor == cursor {
			return &syncerr.FatalError{Reason: "remote reported more changes without advancing the cursor"}
		}
		cursor = page.NextCursor
	}
}

// applyPulled сводит одну удаленную запись с локальной копией
func (c *cycle) applyPulled(ctx context.Context, remote *models.Record) error {
	if err := remote.Validate(); err != nil {
		c.result.Skipped++
		metrics.SyncSkippedTotal.Inc()
		c.logger.Warn("Skipping malformed remote record", slog.String("record_id", remote.ID), slog.Any("error", err))
		return nil
	}

	entry, err := c.store.PendingFor(ctx, remote.ID)
	switch {
	case errors.Is(err, storage.ErrEntryNotFound):
		entry = nil
	case err != nil:
		return fmt.Errorf("failed to read pending change: %w", err)
	}

	var local *models.Record
	if entry != nil {
		local = entry.Snapshot.Clone()
	} else {
		local, err = c.store.Read(ctx, remote.ID)
		switch {
		case errors.Is(err, storage.ErrRecordNotFound):
			local = nil
		case err != nil:
			return fmt.Errorf("failed to read local record: %w", err)
		}
	}

	var seenSeq uint64
	if entry != nil {
		seenSeq = entry.Seq
	}

	if local == nil {
		return c.applyRemote(ctx, remote, seenSeq)
	}
	if entry == nil && local.Equal(remote) {
		return nil
	}

	decision := crdt.Resolve(*local, *remote)
	if entry != nil {
		c.result.Conflicts++
		metrics.SyncConflictsTotal.WithLabelValues(string(decision.Reason)).Inc()
	}

	if !decision.LocalWins() {
		return c.applyRemote(ctx, remote, seenSeq)
	}

	if entry != nil {
		if err := c.store.Rebase(ctx, remote.ID, remote.Version); err != nil && !errors.Is(err, storage.ErrEntryNotFound) {
			return fmt.Errorf("failed to rebase pending change: %w", err)
		}
		c.logger.Debug("Pending change kept over remote record",
			slog.String("record_id", remote.ID),
			slog.Int64("remote_version", remote.Version))
	}
	return nil
}

func (c *cycle) applyRemote(ctx context.Context, remote *models.Record, seenSeq uint64) error {
	applied, err := c.store.ApplyRemoteOver(ctx, remote, seenSeq)
	if err != nil {
		return fmt.Errorf("failed to apply remote record: %w", err)
	}
	if applied {
		c.result.Pulled++
		metrics.SyncPulledTotal.Inc()
	}
	return nil
}
