package api

import (
	"encoding/json"
	"time"
)

// Record представляет запись в теле запросов и ответов
type Record struct {
	UpdatedAt time.Time       `json:"updated_at"`
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Version   int64           `json:"version"`
	Deleted   bool            `json:"deleted"`
}

// MutationRequest запрос на применение локальной правки
// POST /api/v1/records/mutations
type MutationRequest struct {
	Record      Record `json:"record"`
	BaseVersion int64  `json:"base_version"` // удаленная версия, на которую опирается правка
}

// MutationResponse ответ на успешно примененную правку
type MutationResponse struct {
	Version int64 `json:"version"` // новая удаленная версия записи
}

// ConflictResponse тело ответа 409: текущая удаленная запись
type ConflictResponse struct {
	Current Record `json:"current"`
	Error   string `json:"error"`
}

// PullResponse страница изменений
// GET /api/v1/records?cursor=&limit=
type PullResponse struct {
	NextCursor string   `json:"next_cursor"`
	Records    []Record `json:"records"`
	HasMore    bool     `json:"has_more"`
}

// SessionResponse ответ GET /api/v1/session
type SessionResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}
