package models

import "time"

// Operation тип локального изменения записи.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Fold объединяет ожидающую операцию с новой при коалесцировании журнала.
//
//	create + update -> create
//	any    + delete -> delete
//	delete + create/update -> update
func (o Operation) Fold(next Operation) Operation {
	switch {
	case next == OpDelete:
		return OpDelete
	case o == OpDelete:
		return OpUpdate
	case o == OpCreate:
		return OpCreate
	default:
		return next
	}
}

// ChangeEntry элемент журнала изменений, ожидающий отправки на сервер.
// Для каждой записи в журнале хранится не более одного элемента.
type ChangeEntry struct {
	CreatedAt    time.Time `json:"created_at"`
	NextRetryAt  time.Time `json:"next_retry_at"` // NextRetryAt нулевое значение означает "готов сейчас"
	RecordID     string    `json:"record_id"`
	Op           Operation `json:"op"`
	LastError    string    `json:"last_error,omitempty"`
	Snapshot     Record    `json:"snapshot"`     // Snapshot состояние записи на момент последней локальной правки
	Seq          uint64    `json:"seq"`          // Seq монотонный локальный номер, он же идентификатор элемента
	BaseVersion  int64     `json:"base_version"` // BaseVersion удаленная версия, на которую опирается правка
	AttemptCount int       `json:"attempt_count"`
	Parked       bool      `json:"parked"` // Parked элемент отклонен сервером окончательно и не повторяется
}

// IsDue сообщает, можно ли отправлять элемент в момент now.
func (e *ChangeEntry) IsDue(now time.Time) bool {
	return !e.Parked && !e.NextRetryAt.After(now)
}

// Cursor непрозрачный маркер позиции чтения изменений с сервера.
// Пустой курсор означает чтение с начала.
type Cursor string
