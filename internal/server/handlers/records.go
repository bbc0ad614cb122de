package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iudanet/studysync/internal/metrics"
	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/server/storage"
	"github.com/iudanet/studysync/internal/validation"
	"github.com/iudanet/studysync/pkg/api"
)

const (
	// DefaultPageSize размер страницы pull без параметра limit
	DefaultPageSize = 100
	// DefaultMaxPageSize верхняя граница limit
	DefaultMaxPageSize = 500
)

// Mutation outcomes for metrics.MutationsTotal
const (
	outcomeApplied  = "applied"
	outcomeConflict = "conflict"
	outcomeRejected = "rejected"
)

// RecordsHandler отдает поток изменений и принимает правки записей
type RecordsHandler struct {
	responder
	records     storage.RecordStorage
	maxPageSize int
}

// NewRecordsHandler создает handler записей
func NewRecordsHandler(logger *slog.Logger, records storage.RecordStorage, maxPageSize int) *RecordsHandler {
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	return &RecordsHandler{
		responder:   responder{logger: logger},
		records:     records,
		maxPageSize: maxPageSize,
	}
}

// Pull обрабатывает GET /api/v1/records?cursor=&limit=
// Курсор это позиция последнего отданного изменения в потоке пользователя
func (h *RecordsHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	cursor := r.URL.Query().Get("cursor")
	afterSeq, err := parseCursor(cursor)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid cursor", slog.String("cursor", cursor))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// лишняя запись показывает, есть ли следующая страница
	stored, err := h.records.ListSince(ctx, userID, afterSeq, limit+1)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list records",
			slog.String("user_id", userID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := api.PullResponse{
		NextCursor: cursor,
		Records:    make([]api.Record, 0, min(len(stored), limit)),
	}
	for i, rec := range stored {
		if i == limit {
			resp.HasMore = true
			break
		}
		resp.Records = append(resp.Records, rec.Wire())
		resp.NextCursor = strconv.FormatInt(rec.Seq, 10)
	}

	metrics.RecordsServedTotal.Add(float64(len(resp.Records)))
	h.logger.DebugContext(ctx, "records pulled",
		slog.String("user_id", userID),
		slog.Int("count", len(resp.Records)),
		slog.Bool("has_more", resp.HasMore))

	h.sendJSON(w, resp, http.StatusOK)
}

// Mutate обрабатывает POST /api/v1/records/mutations
// 200 с новой версией, 409 с текущей записью при устаревшей базе
func (h *RecordsHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.MutationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode mutation", slog.Any("error", err))
		metrics.MutationsTotal.WithLabelValues(outcomeRejected).Inc()
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record := models.RecordFromWire(req.Record)
	if err := validateMutation(&record, req.BaseVersion); err != nil {
		h.logger.WarnContext(ctx, "mutation rejected",
			slog.String("record_id", record.ID), slog.Any("error", err))
		metrics.MutationsTotal.WithLabelValues(outcomeRejected).Inc()
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	record.UpdatedAt = record.UpdatedAt.UTC()

	stored, err := h.records.ApplyMutation(ctx, userID, &record, req.BaseVersion)
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			metrics.MutationsTotal.WithLabelValues(outcomeConflict).Inc()
			h.logger.InfoContext(ctx, "mutation conflict",
				slog.String("record_id", record.ID),
				slog.Int64("base_version", req.BaseVersion),
				slog.Int64("current_version", conflict.Current.Version))
			h.sendJSON(w, api.ConflictResponse{
				Current: conflict.Current.Wire(),
				Error:   "version conflict",
			}, http.StatusConflict)
			return
		}
		h.logger.ErrorContext(ctx, "failed to apply mutation",
			slog.String("record_id", record.ID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	metrics.MutationsTotal.WithLabelValues(outcomeApplied).Inc()

	h.logger.DebugContext(ctx, "mutation applied",
		slog.String("user_id", userID),
		slog.String("record_id", record.ID),
		slog.Int64("version", stored.Version),
		slog.Int64("seq", stored.Seq))

	h.sendJSON(w, api.MutationResponse{Version: stored.Version}, http.StatusOK)
}

func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	seq, err := strconv.ParseInt(cursor, 10, 64)
	if err != nil || seq < 0 {
		return 0, fmt.Errorf("invalid cursor %q", cursor)
	}
	return seq, nil
}

func (h *RecordsHandler) parseLimit(value string) (int, error) {
	if value == "" {
		return min(DefaultPageSize, h.maxPageSize), nil
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", value)
	}
	return min(limit, h.maxPageSize), nil
}

func validateMutation(record *models.Record, baseVersion int64) error {
	if baseVersion < 0 {
		return fmt.Errorf("base_version must not be negative")
	}
	if err := validation.ValidateKind(record.Kind); err != nil {
		return err
	}
	return record.Validate()
}
