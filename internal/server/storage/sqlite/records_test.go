package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/server/storage"
)

func testRecord(id, payload string, version int64) *models.Record {
	return &models.Record{
		ID:        id,
		Kind:      models.KindNote,
		Payload:   json.RawMessage(payload),
		Version:   version,
		UpdatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecordStorage_ApplyMutation(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	created, err := s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"a"}`, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, int64(1), created.Seq)
	assert.Equal(t, userID, created.UserID)

	updated, err := s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"b"}`, 1), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, int64(2), updated.Seq)

	stored, err := s.GetRecord(ctx, userID, "r1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"b"}`, string(stored.Payload))
	assert.Equal(t, int64(2), stored.Version)
	assert.True(t, stored.UpdatedAt.Equal(updated.UpdatedAt))
}

func TestRecordStorage_ApplyMutation_Conflict(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	_, err := s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"a"}`, 0), 0)
	require.NoError(t, err)
	_, err = s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"b"}`, 1), 1)
	require.NoError(t, err)

	// правка от устройства, которое видело только первую версию
	_, err = s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"stale"}`, 1), 1)
	require.ErrorIs(t, err, storage.ErrVersionConflict)

	var conflict *storage.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.Current.Version)
	assert.JSONEq(t, `{"text":"b"}`, string(conflict.Current.Payload))

	stored, err := s.GetRecord(ctx, userID, "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Seq)
}

func TestRecordStorage_ApplyMutation_Replay(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	first, err := s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"a"}`, 0), 0)
	require.NoError(t, err)

	// повтор запроса, ответ на который потерялся
	again, err := s.ApplyMutation(ctx, userID, testRecord("r1", `{"text":"a"}`, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, first.Version, again.Version)
	assert.Equal(t, first.Seq, again.Seq)

	records, err := s.ListSince(ctx, userID, 0, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRecordStorage_ListSince(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	alice := createTestUser(t, ctx, s)
	bob := createTestUser(t, ctx, s)

	_, err := s.ApplyMutation(ctx, alice, testRecord("a1", `{"n":1}`, 0), 0)
	require.NoError(t, err)
	_, err = s.ApplyMutation(ctx, alice, testRecord("a2", `{"n":2}`, 0), 0)
	require.NoError(t, err)
	_, err = s.ApplyMutation(ctx, bob, testRecord("b1", `{"n":3}`, 0), 0)
	require.NoError(t, err)
	// a1 переезжает в конец потока
	tomb := testRecord("a1", `{"n":1}`, 1)
	tomb.Deleted = true
	_, err = s.ApplyMutation(ctx, alice, tomb, 1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		userID   string
		wantIDs  []string
		afterSeq int64
		limit    int
	}{
		{name: "all changes in stream order", userID: alice, afterSeq: 0, limit: 10, wantIDs: []string{"a2", "a1"}},
		{name: "limit", userID: alice, afterSeq: 0, limit: 1, wantIDs: []string{"a2"}},
		{name: "after position", userID: alice, afterSeq: 2, limit: 10, wantIDs: []string{"a1"}},
		{name: "caught up", userID: alice, afterSeq: 3, limit: 10, wantIDs: []string{}},
		{name: "streams are per user", userID: bob, afterSeq: 0, limit: 10, wantIDs: []string{"b1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.ListSince(ctx, tt.userID, tt.afterSeq, tt.limit)
			require.NoError(t, err)

			ids := make([]string, 0, len(records))
			for _, r := range records {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}

	records, err := s.ListSince(ctx, alice, 2, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Deleted)
	assert.Equal(t, int64(2), records[0].Version)
}

func TestRecordStorage_GetRecord_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	_, err := s.GetRecord(ctx, userID, "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}
