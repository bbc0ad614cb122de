package storage

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/models"
)

func record(version int64, payload string) *models.Record {
	return &models.Record{
		ID:        "r1",
		Kind:      models.KindNote,
		Payload:   json.RawMessage(payload),
		Version:   version,
		UpdatedAt: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestPlanMutation(t *testing.T) {
	stored := func(version int64, payload string) *models.StoredRecord {
		return &models.StoredRecord{UserID: "u1", Record: *record(version, payload), Seq: 7}
	}

	tests := []struct {
		current     *models.StoredRecord
		record      *models.Record
		name        string
		baseVersion int64
		wantVersion int64
		wantReplay  bool
		wantErr     bool
	}{
		{name: "new record", record: record(1, `{}`), baseVersion: 0, wantVersion: 2},
		{name: "new record with unknown base", record: record(4, `{}`), baseVersion: 4, wantVersion: 5},
		{name: "matching base", current: stored(3, `{"a":1}`), record: record(3, `{"a":2}`), baseVersion: 3, wantVersion: 4},
		{name: "stale base", current: stored(5, `{"a":1}`), record: record(3, `{"a":2}`), baseVersion: 3, wantErr: true},
		{name: "retried request", current: stored(2, `{"a":2}`), record: record(1, `{"a":2}`), baseVersion: 1, wantVersion: 2, wantReplay: true},
		{name: "same content but newer base", current: stored(2, `{"a":2}`), record: record(4, `{"a":2}`), baseVersion: 4, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, replay, err := PlanMutation(tt.current, "u1", tt.record, tt.baseVersion)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrVersionConflict))
				var conflict *ConflictError
				require.ErrorAs(t, err, &conflict)
				assert.Equal(t, tt.current, conflict.Current)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantReplay, replay)
			assert.Equal(t, tt.wantVersion, next.Version)
			assert.Equal(t, "u1", next.UserID)
		})
	}
}
