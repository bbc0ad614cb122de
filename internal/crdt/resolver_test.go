package crdt

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/studysync/internal/models"
)

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func rec(id string, version int64, at time.Duration, payload string, deleted bool) models.Record {
	r := models.Record{
		ID:        id,
		Kind:      models.KindNote,
		Version:   version,
		UpdatedAt: base.Add(at),
		Deleted:   deleted,
	}
	if payload != "" {
		r.Payload = json.RawMessage(payload)
	}
	return r
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name       string
		local      models.Record
		remote     models.Record
		wantReason Reason
	}{
		{
			name:       "higher remote version wins",
			local:      rec("r1", 3, time.Hour, `{"v":"local"}`, false),
			remote:     rec("r1", 5, 0, `{"v":"remote"}`, false),
			wantReason: ReasonRemoteWins,
		},
		{
			name:       "higher local version wins",
			local:      rec("r1", 4, 0, `{"v":"local"}`, false),
			remote:     rec("r1", 2, time.Hour, `{"v":"remote"}`, false),
			wantReason: ReasonLocalWins,
		},
		{
			name:       "equal versions, later local write wins",
			local:      rec("r1", 2, time.Minute, `{"v":"local"}`, false),
			remote:     rec("r1", 2, 0, `{"v":"remote"}`, false),
			wantReason: ReasonLocalWins,
		},
		{
			name:       "equal versions, later remote write wins",
			local:      rec("r1", 2, 0, `{"v":"local"}`, false),
			remote:     rec("r1", 2, time.Minute, `{"v":"remote"}`, false),
			wantReason: ReasonRemoteWins,
		},
		{
			name:       "newer tombstone beats live record",
			local:      rec("r1", 1, 2*time.Minute, "", true),
			remote:     rec("r1", 7, time.Minute, `{"v":"remote"}`, false),
			wantReason: ReasonLocalWins,
		},
		{
			name:       "older tombstone loses to live record",
			local:      rec("r1", 9, 0, "", true),
			remote:     rec("r1", 1, time.Minute, `{"v":"remote"}`, false),
			wantReason: ReasonRemoteWins,
		},
		{
			name:       "tombstone at same time loses to live record",
			local:      rec("r1", 1, 0, `{"v":"local"}`, false),
			remote:     rec("r1", 3, 0, "", true),
			wantReason: ReasonLocalWins,
		},
		{
			name:       "full tie broken by payload bytes",
			local:      rec("r1", 2, 0, `{"v":"b"}`, false),
			remote:     rec("r1", 2, 0, `{"v":"a"}`, false),
			wantReason: ReasonLocalWins,
		},
		{
			name:       "identical records resolve to remote",
			local:      rec("r1", 2, 0, `{"v":"a"}`, false),
			remote:     rec("r1", 2, 0, `{"v":"a"}`, false),
			wantReason: ReasonRemoteWins,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Resolve(tt.local, tt.remote)
			assert.Equal(t, tt.wantReason, d.Reason)
			if tt.wantReason == ReasonLocalWins {
				assert.True(t, d.LocalWins())
				assert.True(t, d.Winner.Equal(&tt.local))
			} else {
				assert.True(t, d.Winner.Equal(&tt.remote))
			}
			assert.NotEqual(t, ReasonMerged, d.Reason)
		})
	}
}

func TestResolve_Commutative(t *testing.T) {
	var records []models.Record
	for _, version := range []int64{1, 2} {
		for _, at := range []time.Duration{0, time.Second} {
			for _, deleted := range []bool{false, true} {
				for _, payload := range []string{`{"a":1}`, `{"a":2}`} {
					for _, id := range []string{"r1", "r2"} {
						records = append(records, rec(id, version, at, payload, deleted))
					}
				}
			}
		}
	}

	for i, a := range records {
		for j, b := range records {
			ab := Resolve(a, b).Winner
			ba := Resolve(b, a).Winner
			assert.True(t, ab.Equal(&ba), fmt.Sprintf("pair %d/%d: %+v vs %+v", i, j, a, b))
		}
	}
}

func TestResolve_VersionOrdering(t *testing.T) {
	for v := int64(1); v < 10; v++ {
		older := rec("r1", v, time.Hour, `{"x":1}`, false)
		newerRec := rec("r1", v+1, 0, `{"x":2}`, false)

		assert.Equal(t, newerRec.Version, Resolve(older, newerRec).Winner.Version)
		assert.Equal(t, newerRec.Version, Resolve(newerRec, older).Winner.Version)
	}
}
