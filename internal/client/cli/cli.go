// Package cli команды разработческого клиента поверх движка синхронизации
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/client/data"
	"github.com/iudanet/studysync/internal/client/iocli"
	"github.com/iudanet/studysync/internal/clock"
)

// ErrNotSignedIn команда требует сохраненной сессии
var ErrNotSignedIn = errors.New("not signed in, run 'studysync login' first")

// Cli выполняет команды клиента
type Cli struct {
	io        iocli.IO
	auth      Authenticator
	openData  DataOpener
	engine    Syncer
	journal   SyncJournal
	refresher Runner
	metrics   Runner
	health    *HealthPrinter
	clock     clock.Clock
}

// DataOpener открывает записи пользователя
type DataOpener func(ctx context.Context, userID string) (data.Service, error)

// Deps зависимости Cli. Refresher, Metrics и Health нужны только режиму sync --watch.
type Deps struct {
	IO        iocli.IO
	Auth      Authenticator
	Data      DataOpener
	Engine    Syncer
	Journal   SyncJournal
	Refresher Runner
	Metrics   Runner
	Health    *HealthPrinter
	Clock     clock.Clock
}

// New создает Cli
func New(d Deps) *Cli {
	c := &Cli{
		io:        d.IO,
		auth:      d.Auth,
		openData:  d.Data,
		engine:    d.Engine,
		journal:   d.Journal,
		refresher: d.Refresher,
		metrics:   d.Metrics,
		health:    d.Health,
		clock:     d.Clock,
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	return c
}

// Opener собирает Cli по разобранным флагам. closeFn освобождает локальную базу.
type Opener func(ctx context.Context, flags *pflag.FlagSet) (c *Cli, closeFn func() error, err error)

// NewRootCmd строит дерево команд. Зависимости открываются только при запуске команды.
func NewRootCmd(version string, open Opener, bindFlags func(*pflag.FlagSet)) *cobra.Command {
	root := &cobra.Command{
		Use:           "studysync",
		Short:         "StudySync developer client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if bindFlags != nil {
		bindFlags(root.PersistentFlags())
	}

	with := func(fn runFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			c, closeFn, err := open(cmd.Context(), cmd.Flags())
			if err != nil {
				return err
			}
			defer func() {
				_ = closeFn()
			}()
			return fn(cmd.Context(), c, cmd, args)
		}
	}

	root.AddCommand(authCommands(with)...)
	root.AddCommand(syncCommand(with), quizCommand(with))
	return root
}

// runFunc тело команды с открытым Cli
type runFunc func(ctx context.Context, c *Cli, cmd *cobra.Command, args []string) error

// wrapFunc открывает Cli вокруг тела команды
type wrapFunc func(fn runFunc) func(*cobra.Command, []string) error

// session возвращает сохраненную сессию или ErrNotSignedIn
func (c *Cli) session(ctx context.Context) (*auth.Session, error) {
	sess, err := c.auth.Current(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotSignedIn) {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

// userData записи пользователя сохраненной сессии
func (c *Cli) userData(ctx context.Context) (data.Service, error) {
	sess, err := c.session(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := c.openData(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to open local records: %w", err)
	}
	return svc, nil
}
