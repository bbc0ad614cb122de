package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/client/data"
	"github.com/iudanet/studysync/internal/client/iocli"
	"github.com/iudanet/studysync/internal/client/storage/boltdb"
	"github.com/iudanet/studysync/internal/clock"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

// testIO IOMock с буфером вывода и очередью ответов на запросы ввода
type testIO struct {
	*iocli.IOMock
	out    bytes.Buffer
	inputs []string
	mu     stdsync.Mutex
}

func newTestIO(inputs ...string) *testIO {
	tio := &testIO{inputs: inputs}
	read := func(string) (string, error) {
		tio.mu.Lock()
		defer tio.mu.Unlock()
		if len(tio.inputs) == 0 {
			return "", io.EOF
		}
		next := tio.inputs[0]
		tio.inputs = tio.inputs[1:]
		return next, nil
	}
	tio.IOMock = &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			tio.mu.Lock()
			defer tio.mu.Unlock()
			fmt.Fprintln(&tio.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			tio.mu.Lock()
			defer tio.mu.Unlock()
			fmt.Fprintf(&tio.out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			tio.mu.Lock()
			defer tio.mu.Unlock()
			return tio.out.Write(p)
		},
		ReadInputFunc:    read,
		ReadPasswordFunc: read,
	}
	return tio
}

func (tio *testIO) output() string {
	tio.mu.Lock()
	defer tio.mu.Unlock()
	return tio.out.String()
}

// testEnv Cli поверх настоящего bbolt хранилища с моками сессии и движка.
// По умолчанию вошел пользователь testSession; store и data его раздел.
type testEnv struct {
	cli    *Cli
	io     *testIO
	db     *boltdb.Storage
	store  *boltdb.UserStore
	data   data.Service
	auth   *AuthenticatorMock
	engine *SyncerMock
	clock  *clock.Fake
}

func newTestEnv(t *testing.T, inputs ...string) *testEnv {
	t.Helper()

	ctx := context.Background()
	fake := clock.NewFake(testNow)
	db, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "client.db"), boltdb.WithClock(fake))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	openData := func(ctx context.Context, userID string) (data.Service, error) {
		store, err := db.User(ctx, userID)
		if err != nil {
			return nil, err
		}
		return data.NewService(store, slog.New(slog.NewTextHandler(io.Discard, nil)), data.WithClock(fake)), nil
	}

	session := testSession(time.Time{})
	store, err := db.User(ctx, session.UserID)
	require.NoError(t, err)
	svc, err := openData(ctx, session.UserID)
	require.NoError(t, err)

	env := &testEnv{
		io:    newTestIO(inputs...),
		db:    db,
		store: store,
		data:  svc,
		auth: &AuthenticatorMock{
			CurrentFunc: func(ctx context.Context) (*auth.Session, error) {
				return session, nil
			},
		},
		engine: &SyncerMock{},
		clock:  fake,
	}
	env.cli = New(Deps{
		IO:      env.io,
		Auth:    env.auth,
		Data:    openData,
		Engine:  env.engine,
		Journal: db,
		Clock:   fake,
	})
	return env
}

// runnerFunc адаптер функции к Runner
type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }
