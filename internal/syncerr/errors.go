// Package syncerr описывает классы ошибок, которые различает движок синхронизации.
package syncerr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/iudanet/studysync/internal/models"
)

var (
	// ErrEntryNotFound элемент журнала уже удален или заменен более новой правкой.
	ErrEntryNotFound = errors.New("change entry not found")
	// ErrRecordNotFound запись отсутствует в локальном хранилище.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUnauthorized сессия недействительна, требуется повторный вход.
	ErrUnauthorized = errors.New("unauthorized")
)

// TransientError временная ошибка: сеть, таймаут, 5xx, 429.
// RetryAfter заполняется, если сервер прислал подсказку.
type TransientError struct {
	Cause      error
	RetryAfter time.Duration
}

func (e *TransientError) Error() string {
	if e.Cause == nil {
		return "transient failure"
	}
	return "transient failure: " + e.Cause.Error()
}

func (e *TransientError) Unwrap() error { return e.Cause }

// ConflictError удаленное хранилище отклонило мутацию, так как базовая версия устарела.
// Current содержит текущую удаленную запись.
type ConflictError struct {
	Current models.Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on record %s: remote version %d", e.Current.ID, e.Current.Version)
}

// FatalError мутация отклонена окончательно и повторять ее бессмысленно.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string {
	return "rejected: " + e.Reason
}

// Transient оборачивает ошибку во временную.
func Transient(cause error, retryAfter time.Duration) error {
	return &TransientError{Cause: cause, RetryAfter: retryAfter}
}

// IsTransient сообщает, стоит ли повторить операцию позже.
// Таймауты контекста и сетевые ошибки тоже считаются временными.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// RetryAfter возвращает подсказку сервера о задержке, если она есть.
func RetryAfter(err error) time.Duration {
	var te *TransientError
	if errors.As(err, &te) {
		return te.RetryAfter
	}
	return 0
}

// AsConflict извлекает ConflictError из цепочки ошибок.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsFatal сообщает, отклонена ли операция окончательно.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsUnauthorized сообщает, что сессия больше недействительна.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
