package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/clock"
	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/validation"
)

// Service определяет интерфейс для клиентского data сервиса.
// Все записи только ставятся в журнал изменений и никогда не ждут сервер.
type Service interface {
	Create(ctx context.Context, kind string, payload json.RawMessage) (*models.Record, error)
	Update(ctx context.Context, id string, payload json.RawMessage) (*models.Record, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Record, error)
	List(ctx context.Context, kind string) ([]*models.Record, error)

	AddQuizResult(ctx context.Context, result *models.QuizResult) (*models.QuizRecord, error)
	ListQuizResults(ctx context.Context) ([]*models.QuizRecord, error)
	MarkReviewed(ctx context.Context, id string) (*models.QuizRecord, error)
	Categories(ctx context.Context) ([]string, error)
	CategoryPerformance(ctx context.Context) ([]models.CategoryPerformance, error)
	WeakQuestions(ctx context.Context, categories []string, limit int) ([]*models.QuizRecord, error)
	QuestionsByCategories(ctx context.Context, categories []string, limit int) ([]*models.QuizRecord, error)
	SessionQuestions(ctx context.Context, sessionID string) ([]*models.QuizRecord, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
}

// ChangeHook вызывается после каждой успешной локальной записи.
// Не должен блокироваться.
type ChangeHook func()

// Option настраивает сервис
type Option func(*service)

// WithChangeHook подписывает движок синхронизации на локальные изменения
func WithChangeHook(hook ChangeHook) Option {
	return func(s *service) {
		s.hook = hook
	}
}

// WithClock задает источник UpdatedAt
func WithClock(c clock.Clock) Option {
	return func(s *service) {
		s.clock = c
	}
}

// service handles client-side record operations
type service struct {
	store  storage.LocalStore
	clock  clock.Clock
	hook   ChangeHook
	logger *slog.Logger
}

// NewService creates a new data service
func NewService(store storage.LocalStore, logger *slog.Logger, opts ...Option) Service {
	s := &service{
		store:  store,
		clock:  clock.Real(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates a new record at version 1
func (s *service) Create(ctx context.Context, kind string, payload json.RawMessage) (*models.Record, error) {
	if err := validation.ValidateKind(kind); err != nil {
		return nil, err
	}
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}

	record := &models.Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		Payload:   payload,
		Version:   1,
		UpdatedAt: s.clock.Now(),
	}

	if err := s.save(ctx, record, models.OpCreate); err != nil {
		return nil, err
	}
	return record, nil
}

// Update replaces the payload of an existing record
// Version не меняется: ее повышает только сервер
func (s *service) Update(ctx context.Context, id string, payload json.RawMessage) (*models.Record, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Payload = payload
	record.UpdatedAt = s.clock.Now()

	if err := s.save(ctx, record, models.OpUpdate); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete marks the record as deleted
func (s *service) Delete(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	record.Deleted = true
	record.UpdatedAt = s.clock.Now()

	return s.save(ctx, record, models.OpDelete)
}

// Get returns a live record
// Returns storage.ErrRecordNotFound for missing and deleted records
func (s *service) Get(ctx context.Context, id string) (*models.Record, error) {
	record, err := s.store.Read(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if record.Deleted {
		return nil, fmt.Errorf("record %s is deleted: %w", id, storage.ErrRecordNotFound)
	}
	return record, nil
}

// List returns live records of the kind
func (s *service) List(ctx context.Context, kind string) ([]*models.Record, error) {
	records, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	live := make([]*models.Record, 0, len(records))
	for _, r := range records {
		if !r.Deleted {
			live = append(live, r)
		}
	}
	return live, nil
}

func (s *service) save(ctx context.Context, record *models.Record, op models.Operation) error {
	entry, err := s.store.SaveLocal(ctx, record, op)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	s.logger.DebugContext(ctx, "local change queued",
		slog.String("record_id", record.ID),
		slog.String("op", string(entry.Op)),
		slog.Uint64("seq", entry.Seq))

	if s.hook != nil {
		s.hook()
	}
	return nil
}

// AddQuizResult stores an answered quiz question
func (s *service) AddQuizResult(ctx context.Context, result *models.QuizResult) (*models.QuizRecord, error) {
	if result.Category == "" || result.Question == "" {
		return nil, fmt.Errorf("category and question are required")
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = s.clock.Now()
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quiz result: %w", err)
	}

	record, err := s.Create(ctx, models.KindQuizResult, payload)
	if err != nil {
		return nil, err
	}
	return &models.QuizRecord{RecordID: record.ID, Version: record.Version, Result: *result}, nil
}

// ListQuizResults returns quiz results, newest first
func (s *service) ListQuizResults(ctx context.Context) ([]*models.QuizRecord, error) {
	results, err := s.quizRecords(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Result.CreatedAt.After(results[j].Result.CreatedAt)
	})
	return results, nil
}

// MarkReviewed increments the review counter of a quiz result
func (s *service) MarkReviewed(ctx context.Context, id string) (*models.QuizRecord, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	qr, err := decodeQuiz(record)
	if err != nil {
		return nil, err
	}

	qr.Result.ReviewCount++
	qr.Result.LastReviewed = s.clock.Now()

	payload, err := json.Marshal(qr.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quiz result: %w", err)
	}
	if _, err := s.Update(ctx, id, payload); err != nil {
		return nil, err
	}
	return qr, nil
}

// Categories returns distinct quiz categories in alphabetical order
func (s *service) Categories(ctx context.Context) ([]string, error) {
	perf, err := s.CategoryPerformance(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(perf))
	for _, p := range perf {
		categories = append(categories, p.Category)
	}
	return categories, nil
}

// CategoryPerformance aggregates totals and incorrect answers per category
func (s *service) CategoryPerformance(ctx context.Context) ([]models.CategoryPerformance, error) {
	results, err := s.quizRecords(ctx)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string]*models.CategoryPerformance)
	for _, qr := range results {
		p, ok := byCategory[qr.Result.Category]
		if !ok {
			p = &models.CategoryPerformance{Category: qr.Result.Category}
			byCategory[qr.Result.Category] = p
		}
		p.Total++
		if !qr.Result.IsCorrect {
			p.Incorrect++
		}
	}

	perf := make([]models.CategoryPerformance, 0, len(byCategory))
	for _, p := range byCategory {
		perf = append(perf, *p)
	}
	sort.Slice(perf, func(i, j int) bool { return perf[i].Category < perf[j].Category })
	return perf, nil
}

// WeakQuestions returns incorrectly answered questions in the categories,
// least recently and least often reviewed first
func (s *service) WeakQuestions(ctx context.Context, categories []string, limit int) ([]*models.QuizRecord, error) {
	return s.reviewQueue(ctx, categories, limit, true)
}

// QuestionsByCategories returns questions in the categories in review order
func (s *service) QuestionsByCategories(ctx context.Context, categories []string, limit int) ([]*models.QuizRecord, error) {
	return s.reviewQueue(ctx, categories, limit, false)
}

func (s *service) reviewQueue(ctx context.Context, categories []string, limit int, onlyIncorrect bool) ([]*models.QuizRecord, error) {
	results, err := s.quizRecords(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}

	var queue []*models.QuizRecord
	for _, qr := range results {
		if _, ok := wanted[qr.Result.Category]; !ok {
			continue
		}
		if onlyIncorrect && qr.Result.IsCorrect {
			continue
		}
		queue = append(queue, qr)
	}

	sort.SliceStable(queue, func(i, j int) bool {
		a, b := queue[i].Result, queue[j].Result
		if !a.LastReviewed.Equal(b.LastReviewed) {
			return a.LastReviewed.Before(b.LastReviewed)
		}
		return a.ReviewCount < b.ReviewCount
	})

	if limit > 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	return queue, nil
}

// SessionQuestions returns the questions of a quiz session in answer order
func (s *service) SessionQuestions(ctx context.Context, sessionID string) ([]*models.QuizRecord, error) {
	results, err := s.quizRecords(ctx)
	if err != nil {
		return nil, err
	}

	var session []*models.QuizRecord
	for _, qr := range results {
		if qr.Result.SessionID == sessionID {
			session = append(session, qr)
		}
	}
	sort.SliceStable(session, func(i, j int) bool {
		return session[i].Result.CreatedAt.Before(session[j].Result.CreatedAt)
	})
	return session, nil
}

// DeleteSession deletes every quiz result of the session
func (s *service) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	session, err := s.SessionQuestions(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, qr := range session {
		if err := s.Delete(ctx, qr.RecordID); err != nil {
			return deleted, fmt.Errorf("failed to delete quiz result %s: %w", qr.RecordID, err)
		}
		deleted++
	}
	return deleted, nil
}

func (s *service) quizRecords(ctx context.Context) ([]*models.QuizRecord, error) {
	records, err := s.List(ctx, models.KindQuizResult)
	if err != nil {
		return nil, err
	}

	results := make([]*models.QuizRecord, 0, len(records))
	for _, record := range records {
		qr, err := decodeQuiz(record)
		if err != nil {
			// Битая запись не должна ломать весь список
			s.logger.WarnContext(ctx, "skipping malformed quiz result",
				slog.String("record_id", record.ID),
				slog.Any("error", err))
			continue
		}
		results = append(results, qr)
	}
	return results, nil
}

var errNotQuiz = errors.New("record is not a quiz result")

func decodeQuiz(record *models.Record) (*models.QuizRecord, error) {
	if record.Kind != models.KindQuizResult {
		return nil, fmt.Errorf("%w: %s", errNotQuiz, record.Kind)
	}

	qr := &models.QuizRecord{RecordID: record.ID, Version: record.Version}
	if err := json.Unmarshal(record.Payload, &qr.Result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quiz result: %w", err)
	}
	return qr, nil
}
