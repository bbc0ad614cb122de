package cli

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/client/iocli"
	"github.com/iudanet/studysync/internal/client/sync"
	"github.com/iudanet/studysync/internal/syncerr"
)

func syncCommand(with wrapFunc) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones",
		Args:  cobra.NoArgs,
		RunE: with(func(ctx context.Context, c *Cli, _ *cobra.Command, _ []string) error {
			if watch {
				return c.runWatch(ctx)
			}
			return c.runSync(ctx)
		}),
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep syncing in the background until interrupted")
	return cmd
}

// restore поднимает сохраненную сессию в движке
func (c *Cli) restore(ctx context.Context) (*auth.Session, error) {
	sess, err := c.auth.Restore(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotSignedIn) {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return sess, nil
}

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")

	sess, err := c.restore(ctx)
	if err != nil {
		return err
	}

	if !sess.ExpiresAt.IsZero() && !c.clock.Now().Before(sess.ExpiresAt) {
		if sess, err = c.auth.Refresh(ctx); err != nil {
			if syncerr.IsUnauthorized(err) {
				return fmt.Errorf("session expired, run 'studysync login': %w", err)
			}
			return err
		}
	}

	result, err := c.engine.SyncNow(ctx)
	if err != nil {
		if syncerr.IsUnauthorized(err) {
			return fmt.Errorf("server rejected the session, run 'studysync login': %w", err)
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	if err := c.journal.SaveLastSynced(ctx, sess.UserID, c.clock.Now()); err != nil {
		return err
	}

	c.io.Println("✓ Synchronization completed")
	c.io.Printf("Pushed to server:   %d\n", result.Pushed)
	c.io.Printf("Pulled from server: %d\n", result.Pulled)
	if result.Conflicts > 0 {
		c.io.Printf("Conflicts resolved: %d\n", result.Conflicts)
	}
	if result.Failed > 0 {
		c.io.Printf("Retry scheduled:    %d\n", result.Failed)
	}
	if result.Parked > 0 {
		c.io.Printf("⚠️  Rejected:       %d\n", result.Parked)
	}
	if result.Skipped > 0 {
		c.io.Printf("Skipped (invalid):  %d\n", result.Skipped)
	}
	return nil
}

// runWatch синхронизирует в фоне до отмены ctx. Токен обновляется заранее.
func (c *Cli) runWatch(ctx context.Context) error {
	if _, err := c.restore(ctx); err != nil {
		return err
	}
	c.io.Println("Watching for changes, press Ctrl+C to stop")
	if c.health != nil {
		c.health.Enable()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.engine.Run(gctx)
	})
	for _, r := range []Runner{c.refresher, c.metrics} {
		if r == nil {
			continue
		}
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// HealthPrinter печатает изменения Health в режиме --watch
type HealthPrinter struct {
	io      iocli.IO
	last    atomic.Int32
	enabled atomic.Bool
}

var _ sync.HealthNotifier = (*HealthPrinter)(nil)

// NewHealthPrinter создает выключенный принтер
func NewHealthPrinter(io iocli.IO) *HealthPrinter {
	p := &HealthPrinter{io: io}
	p.last.Store(-1)
	return p
}

// Enable включает вывод
func (p *HealthPrinter) Enable() {
	p.enabled.Store(true)
}

// OnSyncHealthChanged печатает строку при смене состояния или после цикла в Idle
func (p *HealthPrinter) OnSyncHealthChanged(h sync.Health) {
	if !p.enabled.Load() {
		return
	}
	prev := p.last.Swap(int32(h.State))
	if prev == int32(h.State) && h.State != sync.StateIdle {
		return
	}

	line := fmt.Sprintf("[%s] pending=%d rejected=%d", h.State, h.Pending, h.Parked)
	if h.LastError != "" && h.State != sync.StateIdle {
		line += " error=" + h.LastError
	}
	p.io.Println(line)
}
