package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/models"
	"github.com/iudanet/studysync/internal/syncerr"
	"github.com/iudanet/studysync/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	assert.NotNil(t, client)
	assert.Equal(t, baseURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestClient_Login(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "testuser", req.Username)
		assert.Equal(t, "correct horse battery", req.Password)

		writeJSON(t, w, http.StatusOK, api.TokenResponse{
			AccessToken:  "access",
			RefreshToken: "refresh",
			UserID:       "user-1",
			ExpiresIn:    900,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login(context.Background(), api.LoginRequest{Username: "testuser", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, "access", resp.AccessToken)
	assert.Equal(t, "user-1", resp.UserID)
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, api.ErrorResponse{Error: "invalid credentials"})
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Login(context.Background(), api.LoginRequest{Username: "u", Password: "p"})
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerr.ErrUnauthorized)
	assert.Contains(t, err.Error(), "invalid credentials")
}

func TestClient_FetchSince(t *testing.T) {
	updated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/records", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "10", r.URL.Query().Get("cursor"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		writeJSON(t, w, http.StatusOK, api.PullResponse{
			Records: []api.Record{
				{ID: "r1", Kind: models.KindNote, Payload: json.RawMessage(`{"a":1}`), Version: 2, UpdatedAt: updated},
			},
			NextCursor: "11",
			HasMore:    true,
		})
	}))
	defer server.Close()

	page, err := NewClient(server.URL).FetchSince(context.Background(), "tok", "10", 50)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, models.Cursor("11"), page.NextCursor)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(2), page.Records[0].Version)
	assert.Equal(t, updated, page.Records[0].UpdatedAt)
}

func TestClient_ApplyMutation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/records/mutations", r.URL.Path)

		var req api.MutationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "r1", req.Record.ID)
		assert.Equal(t, int64(4), req.BaseVersion)

		writeJSON(t, w, http.StatusOK, api.MutationResponse{Version: 5})
	}))
	defer server.Close()

	version, err := NewClient(server.URL).ApplyMutation(context.Background(), "tok", Mutation{
		Record:      models.Record{ID: "r1", Kind: models.KindNote, Payload: json.RawMessage(`{}`), Version: 4},
		BaseVersion: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)
}

func TestClient_ApplyMutation_ErrorMapping(t *testing.T) {
	tests := []struct {
		check      func(t *testing.T, err error)
		body       interface{}
		name       string
		retryAfter string
		status     int
	}{
		{
			name:   "conflict carries current record",
			status: http.StatusConflict,
			body: api.ConflictResponse{
				Error:   "version conflict",
				Current: api.Record{ID: "r1", Version: 5, Payload: json.RawMessage(`{"remote":true}`)},
			},
			check: func(t *testing.T, err error) {
				ce, ok := syncerr.AsConflict(err)
				require.True(t, ok)
				assert.Equal(t, int64(5), ce.Current.Version)
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   api.ErrorResponse{Error: "token expired"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsUnauthorized(err))
			},
		},
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   api.ErrorResponse{Error: "forbidden"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsUnauthorized(err))
			},
		},
		{
			name:   "bad request is fatal",
			status: http.StatusBadRequest,
			body:   api.ErrorResponse{Error: "invalid record"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsFatal(err))
			},
		},
		{
			name:   "payload too large is fatal",
			status: http.StatusRequestEntityTooLarge,
			body:   api.ErrorResponse{Error: "too large"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsFatal(err))
			},
		},
		{
			name:   "unprocessable is fatal",
			status: http.StatusUnprocessableEntity,
			body:   api.ErrorResponse{Error: "schema"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsFatal(err))
			},
		},
		{
			name:       "too many requests is transient with hint",
			status:     http.StatusTooManyRequests,
			body:       api.ErrorResponse{Error: "slow down"},
			retryAfter: "12",
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsTransient(err))
				assert.Equal(t, 12*time.Second, syncerr.RetryAfter(err))
			},
		},
		{
			name:   "server error is transient",
			status: http.StatusServiceUnavailable,
			body:   api.ErrorResponse{Error: "maintenance"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsTransient(err))
				assert.False(t, syncerr.IsFatal(err))
			},
		},
		{
			name:   "request timeout is transient",
			status: http.StatusRequestTimeout,
			body:   api.ErrorResponse{Error: "timeout"},
			check: func(t *testing.T, err error) {
				assert.True(t, syncerr.IsTransient(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				writeJSON(t, w, tt.status, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).ApplyMutation(context.Background(), "tok", Mutation{
				Record: models.Record{ID: "r1", Payload: json.RawMessage(`{}`)},
			})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_NetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(url).VerifySession(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, syncerr.IsTransient(err))
}

func TestClient_DeadlineIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL).FetchSince(ctx, "tok", "", 10)
	require.Error(t, err)
	assert.True(t, syncerr.IsTransient(err))
}

func TestClient_CancelIsNotTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewClient("http://127.0.0.1:1").VerifySession(ctx, "tok")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, syncerr.IsTransient(err))
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Zero(t, retryAfter(""))
	assert.Zero(t, retryAfter("garbage"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := retryAfter(future)
	assert.Greater(t, d, 50*time.Second)
}
