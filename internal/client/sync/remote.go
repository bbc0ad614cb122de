package sync

import (
	"context"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/models"
)

//go:generate moq -out remote_mock.go . RemoteStore

// RemoteStore удаленное хранилище записей. Токен сессии передается в каждый вызов.
type RemoteStore interface {
	// FetchSince возвращает страницу изменений после курсора
	FetchSince(ctx context.Context, token string, cursor models.Cursor, pageSize int) (*api.Page, error)

	// ApplyMutation применяет правку и возвращает новую версию записи.
	// При расхождении версий возвращает *syncerr.ConflictError с текущей записью.
	ApplyMutation(ctx context.Context, token string, m api.Mutation) (int64, error)

	// VerifySession проверяет токен сессии
	VerifySession(ctx context.Context, token string) error
}

var _ RemoteStore = (*api.Client)(nil)
