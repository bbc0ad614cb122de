package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/client/sync"
)

// ClientConfig настройки клиента
type ClientConfig struct {
	ServerURL      string     `mapstructure:"server_url"`
	DBPath         string     `mapstructure:"db_path"`
	LogLevel       string     `mapstructure:"log_level"`
	MetricsAddress string     `mapstructure:"metrics_address"` // MetricsAddress /metrics в режиме sync --watch, пусто: выключено
	Sync           SyncConfig `mapstructure:"sync"`
}

// SyncConfig настройки движка синхронизации и повторов журнала изменений
type SyncConfig struct {
	PushBatchSize        int           `mapstructure:"push_batch_size"`
	PullPageSize         int           `mapstructure:"pull_page_size"`
	MaxConflictRetries   int           `mapstructure:"max_conflict_retries"`
	RemoteTimeout        time.Duration `mapstructure:"remote_timeout"`
	BackoffMin           time.Duration `mapstructure:"backoff_min"`
	BackoffMax           time.Duration `mapstructure:"backoff_max"`
	BackoffJitterPercent uint64        `mapstructure:"backoff_jitter_percent"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	RetryBase            time.Duration `mapstructure:"retry_base"`
	RetryCeiling         time.Duration `mapstructure:"retry_ceiling"`
}

var clientFlags = flagKeys{
	"config":    "config",
	"server":    "server_url",
	"db":        "db_path",
	"log-level": "log_level",
	"metrics":   "metrics_address",
}

// BindClientFlags регистрирует флаги клиента
func BindClientFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file")
	fs.String("server", "http://localhost:8080", "Server URL")
	fs.String("db", "studysync.db", "Path to local database file")
	fs.String("log-level", "warn", "Log level (debug, info, warn, error)")
	fs.String("metrics", "", "Serve sync metrics on this address while watching")
}

func clientDefaults() map[string]any {
	engine := sync.DefaultConfig()
	retry := storage.DefaultRetryPolicy()

	return map[string]any{
		"config":                      "",
		"server_url":                  "http://localhost:8080",
		"db_path":                     "studysync.db",
		"log_level":                   "warn",
		"metrics_address":             "",
		"sync.push_batch_size":        engine.PushBatchSize,
		"sync.pull_page_size":         engine.PullPageSize,
		"sync.max_conflict_retries":   engine.MaxConflictRetries,
		"sync.remote_timeout":         engine.RemoteTimeout,
		"sync.backoff_min":            engine.BackoffMin,
		"sync.backoff_max":            engine.BackoffMax,
		"sync.backoff_jitter_percent": engine.BackoffJitterPercent,
		"sync.poll_interval":          engine.PollInterval,
		"sync.retry_base":             retry.Base,
		"sync.retry_ceiling":          retry.Ceiling,
	}
}

// LoadClient загружает настройки клиента. flags может быть nil.
func LoadClient(flags *pflag.FlagSet) (*ClientConfig, error) {
	var cfg ClientConfig
	if err := load(clientDefaults(), flags, clientFlags, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет настройки клиента
func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("%w: server url is required", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is required", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Sync.BackoffJitterPercent > 100 {
		return fmt.Errorf("%w: backoff jitter must be within 0..100", ErrInvalidConfig)
	}
	return nil
}

// Engine возвращает настройки движка синхронизации
func (s SyncConfig) Engine() sync.Config {
	return sync.Config{
		PushBatchSize:        s.PushBatchSize,
		PullPageSize:         s.PullPageSize,
		MaxConflictRetries:   s.MaxConflictRetries,
		RemoteTimeout:        s.RemoteTimeout,
		BackoffMin:           s.BackoffMin,
		BackoffMax:           s.BackoffMax,
		BackoffJitterPercent: s.BackoffJitterPercent,
		PollInterval:         s.PollInterval,
	}
}

// RetryPolicy возвращает политику повторов для журнала изменений
func (s SyncConfig) RetryPolicy() storage.RetryPolicy {
	return storage.RetryPolicy{Base: s.RetryBase, Ceiling: s.RetryCeiling}
}
