package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/server/storage"
)

func newTestToken(userID, hash string, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
}

func TestTokenStorage_SaveRefreshToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	tests := []struct {
		name  string
		token *models.RefreshToken
	}{
		{
			name:  "save new refresh token",
			token: newTestToken(userID, "hash123", time.Now().Add(24*time.Hour)),
		},
		{
			name:  "replace existing token with same hash",
			token: newTestToken(userID, "hash123", time.Now().Add(48*time.Hour)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SaveRefreshToken(ctx, tt.token)
			require.NoError(t, err)

			// Verify token was saved
			retrieved, err := s.GetRefreshToken(ctx, tt.token.TokenHash)
			require.NoError(t, err)
			assert.Equal(t, tt.token.ID, retrieved.ID)
			assert.Equal(t, tt.token.UserID, retrieved.UserID)
			assert.WithinDuration(t, tt.token.ExpiresAt, retrieved.ExpiresAt, time.Second)
		})
	}
}

func TestTokenStorage_SaveRefreshToken_UnknownUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	err := s.SaveRefreshToken(ctx, newTestToken(uuid.New().String(), "orphan", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

func TestTokenStorage_GetRefreshToken_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetRefreshToken(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestTokenStorage_DeleteRefreshToken(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	require.NoError(t, s.SaveRefreshToken(ctx, newTestToken(userID, "hash1", time.Now().Add(time.Hour))))

	tests := []struct {
		wantError error
		name      string
		hash      string
	}{
		{name: "delete existing token", hash: "hash1"},
		{name: "delete already deleted token", hash: "hash1", wantError: storage.ErrTokenNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.DeleteRefreshToken(ctx, tt.hash)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)

			_, err = s.GetRefreshToken(ctx, tt.hash)
			assert.ErrorIs(t, err, storage.ErrTokenNotFound)
		})
	}
}

func TestTokenStorage_DeleteUserTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	user1 := createTestUser(t, ctx, s)
	user2 := createTestUser(t, ctx, s)

	for _, hash := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveRefreshToken(ctx, newTestToken(user1, hash, time.Now().Add(time.Hour))))
	}
	require.NoError(t, s.SaveRefreshToken(ctx, newTestToken(user2, "d", time.Now().Add(time.Hour))))

	deleted, err := s.DeleteUserTokens(ctx, user1)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// токены другого пользователя не затронуты
	_, err = s.GetRefreshToken(ctx, "d")
	assert.NoError(t, err)

	deleted, err = s.DeleteUserTokens(ctx, user1)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestTokenStorage_DeleteExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRefreshToken(ctx, newTestToken(userID, "expired1", now.Add(-time.Hour))))
	require.NoError(t, s.SaveRefreshToken(ctx, newTestToken(userID, "expired2", now.Add(-24*time.Hour))))
	require.NoError(t, s.SaveRefreshToken(ctx, newTestToken(userID, "valid", now.Add(time.Hour))))

	deleted, err := s.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = s.GetRefreshToken(ctx, "valid")
	assert.NoError(t, err)
	_, err = s.GetRefreshToken(ctx, "expired1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}
