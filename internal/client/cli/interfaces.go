package cli

import (
	"context"
	"time"

	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/client/sync"
)

//go:generate moq -out authenticator_mock.go . Authenticator
//go:generate moq -out syncer_mock.go . Syncer

// Authenticator управляет сессией пользователя. Реализуется auth.Service.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*auth.Session, error)
	Restore(ctx context.Context) (*auth.Session, error)
	Refresh(ctx context.Context) (*auth.Session, error)
}

// Syncer движок синхронизации. Реализуется sync.Engine.
type Syncer interface {
	SyncNow(ctx context.Context) (*sync.CycleResult, error)
	Run(ctx context.Context) error
	Health() sync.Health
}

// SyncJournal сведения о журнале изменений для status.
// Журнал ведется отдельно для каждого пользователя.
type SyncJournal interface {
	storage.UserStores
	GetLastSynced(ctx context.Context, userID string) (time.Time, error)
	SaveLastSynced(ctx context.Context, userID string, at time.Time) error
}

// Runner фоновая задача режима --watch
type Runner interface {
	Run(ctx context.Context) error
}

var (
	_ Authenticator = (*auth.Service)(nil)
	_ Syncer        = (*sync.Engine)(nil)
	_ Runner        = (*auth.Refresher)(nil)
)
