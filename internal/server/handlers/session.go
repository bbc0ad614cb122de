package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/studysync/pkg/api"
)

// SessionHandler подтверждает действительность access token
type SessionHandler struct {
	responder
}

// NewSessionHandler создает handler проверки сессии
func NewSessionHandler(logger *slog.Logger) *SessionHandler {
	return &SessionHandler{responder: responder{logger: logger}}
}

// Session обрабатывает GET /api/v1/session
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	username, _ := GetUsername(r.Context())

	h.sendJSON(w, api.SessionResponse{UserID: userID, Username: username}, http.StatusOK)
}
