package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/client/auth"
)

// openerFor отдает готовый Cli и считает закрытия
func openerFor(c *Cli, closed *int) Opener {
	return func(ctx context.Context, flags *pflag.FlagSet) (*Cli, func() error, error) {
		return c, func() error {
			*closed++
			return nil
		}, nil
	}
}

func TestNewRootCmd_QuizAdd(t *testing.T) {
	env := newTestEnv(t)
	closed := 0

	root := NewRootCmd("test", openerFor(env.cli, &closed), nil)
	root.SetArgs([]string{"quiz", "add",
		"--category", "math",
		"--question", "2+2?",
		"--answer", "4",
		"--correct", "4",
		"--option", "3", "--option", "4",
	})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, 1, closed)

	results, err := env.data.ListQuizResults(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "math", results[0].Result.Category)
	assert.Equal(t, []string{"3", "4"}, results[0].Result.Options)
	assert.True(t, results[0].Result.IsCorrect)
}

func TestNewRootCmd_MissingRequiredFlag(t *testing.T) {
	env := newTestEnv(t)
	closed := 0

	root := NewRootCmd("test", openerFor(env.cli, &closed), nil)
	root.SetArgs([]string{"quiz", "add", "--category", "math"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Equal(t, 0, closed, "dependencies are not opened for invalid invocations")
}

func TestNewRootCmd_LoginWithFlag(t *testing.T) {
	env := newTestEnv(t, "password123")
	env.auth.LoginFunc = func(ctx context.Context, username, password string) (*auth.Session, error) {
		return &auth.Session{Username: username, UserID: "user-1"}, nil
	}
	closed := 0

	root := NewRootCmd("test", openerFor(env.cli, &closed), nil)
	root.SetArgs([]string{"login", "-u", "carol"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	require.Len(t, env.auth.LoginCalls(), 1)
	assert.Equal(t, "carol", env.auth.LoginCalls()[0].Username)
	assert.Empty(t, env.io.ReadInputCalls())
}

func TestNewRootCmd_OpenFailure(t *testing.T) {
	boom := errors.New("database is locked")
	open := func(ctx context.Context, flags *pflag.FlagSet) (*Cli, func() error, error) {
		return nil, nil, boom
	}
	bound := false
	bind := func(fs *pflag.FlagSet) {
		bound = true
		fs.String("db", "studysync.db", "Path to local database file")
	}

	root := NewRootCmd("test", open, bind)
	root.SetArgs([]string{"--db", "/tmp/other.db", "status"})

	assert.ErrorIs(t, root.ExecuteContext(context.Background()), boom)
	assert.True(t, bound)
}
