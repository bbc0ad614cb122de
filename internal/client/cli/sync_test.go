package cli

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/client/auth"
	clientsync "github.com/iudanet/studysync/internal/client/sync"
	"github.com/iudanet/studysync/internal/syncerr"
)

func TestCli_runSync_Success(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.auth.RestoreFunc = func(ctx context.Context) (*auth.Session, error) {
		return testSession(testNow.Add(10 * time.Minute)), nil
	}
	env.engine.SyncNowFunc = func(ctx context.Context) (*clientsync.CycleResult, error) {
		return &clientsync.CycleResult{Pushed: 2, Pulled: 3, Conflicts: 1, Parked: 1}, nil
	}

	require.NoError(t, env.cli.runSync(ctx))

	out := env.io.output()
	assert.Contains(t, out, "Synchronization completed")
	assert.Contains(t, out, "Pushed to server:   2")
	assert.Contains(t, out, "Pulled from server: 3")
	assert.Contains(t, out, "Conflicts resolved: 1")
	assert.Contains(t, out, "Rejected")
	assert.NotContains(t, out, "Skipped")
	assert.Empty(t, env.auth.RefreshCalls())

	last, err := env.db.GetLastSynced(ctx, "user-123")
	require.NoError(t, err)
	assert.True(t, testNow.Equal(last))
}

func TestCli_runSync_RefreshesExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.auth.RestoreFunc = func(ctx context.Context) (*auth.Session, error) {
		return testSession(testNow.Add(-time.Second)), nil
	}
	env.auth.RefreshFunc = func(ctx context.Context) (*auth.Session, error) {
		return testSession(testNow.Add(15 * time.Minute)), nil
	}
	env.engine.SyncNowFunc = func(ctx context.Context) (*clientsync.CycleResult, error) {
		// к моменту цикла токен уже обновлен
		require.Len(t, env.auth.RefreshCalls(), 1)
		return &clientsync.CycleResult{}, nil
	}

	require.NoError(t, env.cli.runSync(context.Background()))
	assert.Len(t, env.engine.SyncNowCalls(), 1)
}

func TestCli_runSync_Errors(t *testing.T) {
	tests := []struct {
		restoreErr error
		refreshErr error
		syncErr    error
		wantIs     error
		name       string
		wantMsg    string
		expired    bool
	}{
		{
			name:       "not signed in",
			restoreErr: auth.ErrNotSignedIn,
			wantIs:     ErrNotSignedIn,
		},
		{
			name:       "refresh token rejected",
			expired:    true,
			refreshErr: fmt.Errorf("token refresh failed: %w", syncerr.ErrUnauthorized),
			wantIs:     syncerr.ErrUnauthorized,
			wantMsg:    "studysync login",
		},
		{
			name:    "session rejected during sync",
			syncErr: fmt.Errorf("session check failed: %w", syncerr.ErrUnauthorized),
			wantIs:  syncerr.ErrUnauthorized,
			wantMsg: "studysync login",
		},
		{
			name:    "server unavailable",
			syncErr: syncerr.Transient(errors.New("connection refused"), 0),
			wantMsg: "synchronization failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			expiresAt := testNow.Add(time.Hour)
			if tt.expired {
				expiresAt = testNow.Add(-time.Hour)
			}
			env.auth.RestoreFunc = func(ctx context.Context) (*auth.Session, error) {
				if tt.restoreErr != nil {
					return nil, tt.restoreErr
				}
				return testSession(expiresAt), nil
			}
			env.auth.RefreshFunc = func(ctx context.Context) (*auth.Session, error) {
				return nil, tt.refreshErr
			}
			env.engine.SyncNowFunc = func(ctx context.Context) (*clientsync.CycleResult, error) {
				return nil, tt.syncErr
			}

			err := env.cli.runSync(context.Background())

			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}

			last, err := env.db.GetLastSynced(context.Background(), "user-123")
			require.NoError(t, err)
			assert.True(t, last.IsZero())
		})
	}
}

func TestCli_runWatch(t *testing.T) {
	env := newTestEnv(t)
	env.cli.health = NewHealthPrinter(env.io)
	env.auth.RestoreFunc = func(ctx context.Context) (*auth.Session, error) {
		return testSession(testNow.Add(time.Hour)), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 2)
	wait := func(ctx context.Context) error {
		started <- struct{}{}
		<-ctx.Done()
		return ctx.Err()
	}
	env.engine.RunFunc = wait
	env.cli.refresher = runnerFunc(wait)

	done := make(chan error, 1)
	go func() { done <- env.cli.runWatch(ctx) }()

	<-started
	<-started
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Contains(t, env.io.output(), "Watching for changes")
	assert.True(t, env.cli.health.enabled.Load())
}

func TestCli_runWatch_EngineFailure(t *testing.T) {
	env := newTestEnv(t)
	env.auth.RestoreFunc = func(ctx context.Context) (*auth.Session, error) {
		return testSession(testNow.Add(time.Hour)), nil
	}
	boom := errors.New("local store closed")
	env.engine.RunFunc = func(ctx context.Context) error {
		return boom
	}

	err := env.cli.runWatch(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestHealthPrinter(t *testing.T) {
	tio := newTestIO()
	p := NewHealthPrinter(tio)

	// выключен до Enable
	p.OnSyncHealthChanged(clientsync.Health{State: clientsync.StateIdle})
	assert.Empty(t, tio.output())

	p.Enable()
	p.OnSyncHealthChanged(clientsync.Health{State: clientsync.StatePushing, Pending: 2})
	p.OnSyncHealthChanged(clientsync.Health{State: clientsync.StatePushing, Pending: 1})
	p.OnSyncHealthChanged(clientsync.Health{State: clientsync.StateBackoff, Pending: 1, LastError: "server unavailable"})
	p.OnSyncHealthChanged(clientsync.Health{State: clientsync.StateIdle})
	p.OnSyncHealthChanged(clientsync.Health{State: clientsync.StateIdle, Parked: 1})

	assert.Equal(t,
		"[pushing] pending=2 rejected=0\n"+
			"[backoff] pending=1 rejected=0 error=server unavailable\n"+
			"[idle] pending=0 rejected=0\n"+
			"[idle] pending=0 rejected=1\n",
		tio.output())
}
