package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind значения для Record.Kind. Движок синхронизации их не интерпретирует.
const (
	KindQuizResult = "quiz_result"
	KindNote       = "note"
	KindTask       = "task"
)

// ErrInvalidRecord возвращается Validate для записей, которые нельзя применить локально.
var ErrInvalidRecord = errors.New("invalid record")

// Record представляет синхронизируемый документ.
// Payload непрозрачен для движка синхронизации; Version меняется только
// по подтверждению удаленного хранилища или при применении удаленной версии.
type Record struct {
	UpdatedAt time.Time       `json:"updated_at"` // UpdatedAt время последней записи на стороне автора (UTC)
	ID        string          `json:"id"`         // ID UUID, генерируется клиентом и не меняется
	Kind      string          `json:"kind"`       // Kind тип полезной нагрузки: "quiz_result", "note", "task"
	Payload   json.RawMessage `json:"payload"`    // Payload версионируемый документ
	Version   int64           `json:"version"`    // Version последняя известная удаленная версия
	Deleted   bool            `json:"deleted"`    // Deleted tombstone
}

// Validate проверяет запись, пришедшую из удаленного хранилища.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidRecord)
	}
	if r.Version < 0 {
		return fmt.Errorf("%w: negative version %d", ErrInvalidRecord, r.Version)
	}
	if r.Deleted {
		return nil
	}
	if len(r.Payload) == 0 || !json.Valid(r.Payload) {
		return fmt.Errorf("%w: payload of %s is not valid JSON", ErrInvalidRecord, r.ID)
	}
	return nil
}

// Equal сравнивает две записи по всем полям.
func (r *Record) Equal(other *Record) bool {
	return r.ID == other.ID &&
		r.Kind == other.Kind &&
		r.Version == other.Version &&
		r.Deleted == other.Deleted &&
		r.UpdatedAt.Equal(other.UpdatedAt) &&
		bytes.Equal(r.Payload, other.Payload)
}

// Clone создает глубокую копию записи
func (r *Record) Clone() *Record {
	var payload json.RawMessage
	if r.Payload != nil {
		payload = make(json.RawMessage, len(r.Payload))
		copy(payload, r.Payload)
	}

	return &Record{
		ID:        r.ID,
		Kind:      r.Kind,
		Payload:   payload,
		Version:   r.Version,
		Deleted:   r.Deleted,
		UpdatedAt: r.UpdatedAt,
	}
}
