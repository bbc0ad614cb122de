package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperation_Fold(t *testing.T) {
	tests := []struct {
		pending Operation
		next    Operation
		want    Operation
	}{
		{OpCreate, OpUpdate, OpCreate},
		{OpCreate, OpDelete, OpDelete},
		{OpUpdate, OpUpdate, OpUpdate},
		{OpUpdate, OpDelete, OpDelete},
		{OpDelete, OpUpdate, OpUpdate},
		{OpDelete, OpCreate, OpUpdate},
		{OpDelete, OpDelete, OpDelete},
	}

	for _, tt := range tests {
		t.Run(string(tt.pending)+"+"+string(tt.next), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pending.Fold(tt.next))
		})
	}
}

func TestChangeEntry_IsDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, (&ChangeEntry{}).IsDue(now))
	assert.True(t, (&ChangeEntry{NextRetryAt: now}).IsDue(now))
	assert.False(t, (&ChangeEntry{NextRetryAt: now.Add(time.Second)}).IsDue(now))
	assert.False(t, (&ChangeEntry{Parked: true}).IsDue(now))
}
