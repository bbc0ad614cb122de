package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadClient_Defaults(t *testing.T) {
	cfg, err := LoadClient(nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "studysync.db", cfg.DBPath)
	assert.Empty(t, cfg.MetricsAddress)
	assert.Equal(t, 50, cfg.Sync.PushBatchSize)
	assert.Equal(t, 15*time.Second, cfg.Sync.RemoteTimeout)
	assert.Equal(t, uint64(20), cfg.Sync.BackoffJitterPercent)

	engine := cfg.Sync.Engine()
	assert.Equal(t, 100, engine.PullPageSize)
	assert.Equal(t, 5*time.Minute, engine.BackoffMax)

	policy := cfg.Sync.RetryPolicy()
	assert.Equal(t, 30*time.Second, policy.Base)
	assert.Equal(t, time.Hour, policy.Ceiling)
}

func TestLoadClient_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("STUDYSYNC_SERVER_URL", "http://env:8080")
	t.Setenv("STUDYSYNC_DB_PATH", "env.db")
	t.Setenv("STUDYSYNC_SYNC_POLL_INTERVAL", "90s")

	fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
	BindClientFlags(fs)
	require.NoError(t, fs.Parse([]string{"--server", "http://flag:8080", "--metrics", ":9091"}))

	cfg, err := LoadClient(fs)
	require.NoError(t, err)

	assert.Equal(t, "http://flag:8080", cfg.ServerURL)
	assert.Equal(t, ":9091", cfg.MetricsAddress)
	assert.Equal(t, "env.db", cfg.DBPath)
	assert.Equal(t, 90*time.Second, cfg.Sync.PollInterval)
}

func TestLoadClient_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	content := []byte("server_url: http://file:9000\nsync:\n  push_batch_size: 10\n  backoff_max: 1m\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("STUDYSYNC_CONFIG", path)

	cfg, err := LoadClient(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://file:9000", cfg.ServerURL)
	assert.Equal(t, 10, cfg.Sync.PushBatchSize)
	assert.Equal(t, time.Minute, cfg.Sync.BackoffMax)
}

func TestLoadClient_Invalid(t *testing.T) {
	tests := []struct {
		env  map[string]string
		name string
		args []string
	}{
		{name: "empty server", args: []string{"--server="}},
		{name: "bad log level", env: map[string]string{"STUDYSYNC_LOG_LEVEL": "loud"}},
		{name: "jitter over 100", env: map[string]string{"STUDYSYNC_SYNC_BACKOFF_JITTER_PERCENT": "150"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fs := pflag.NewFlagSet("client", pflag.ContinueOnError)
			BindClientFlags(fs)
			require.NoError(t, fs.Parse(tt.args))

			_, err := LoadClient(fs)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadClient_MissingConfigFile(t *testing.T) {
	t.Setenv("STUDYSYNC_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadClient(nil)
	assert.Error(t, err)
}

func TestLoadServer(t *testing.T) {
	t.Setenv("STUDYSYNC_JWT_SECRET", testSecret)
	t.Setenv("STUDYSYNC_MONGO_URI", "mongodb://localhost:27017")

	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	BindServerFlags(fs)
	require.NoError(t, fs.Parse([]string{"--addr", ":9999", "--log-level", "debug"}))

	cfg, err := LoadServer(fs)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Address)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "records", cfg.Mongo.Collection)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 500, cfg.MaxPageSize)
}

func TestLoadServer_RequiresSecret(t *testing.T) {
	t.Setenv("STUDYSYNC_JWT_SECRET", "short")

	_, err := LoadServer(nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "WARN", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "info", "json")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown", slog.String("k", "v"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"k":"v"`)

	_, err = NewLogger(&buf, "info", "xml")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLogConfig_Writer(t *testing.T) {
	assert.Equal(t, os.Stdout, LogConfig{}.Writer())

	path := filepath.Join(t.TempDir(), "server.log")
	w := LogConfig{File: path, MaxSizeMB: 1}.Writer()
	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, path, lj.Filename)
	assert.Equal(t, 1, lj.MaxSize)
}
