package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iudanet/studysync/pkg/api"
)

func TestSessionHandler_Session(t *testing.T) {
	handler := NewSessionHandler(setupTestLogger())

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		req = req.WithContext(WithUser(req.Context(), "user-1", "alice"))
		w := httptest.NewRecorder()

		handler.Session(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[api.SessionResponse](t, w)
		assert.Equal(t, "user-1", resp.UserID)
		assert.Equal(t, "alice", resp.Username)
	})

	t.Run("no user in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, ""))
		w := httptest.NewRecorder()

		handler.Session(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
