package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ServerConfig настройки эталонного сервера
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	MetricsAddress  string        `mapstructure:"metrics_address"`
	DBPath          string        `mapstructure:"db_path"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
	Mongo           MongoConfig   `mapstructure:"mongo"`
	Log             LogConfig     `mapstructure:"log"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       int           `mapstructure:"rate_limit"` // запросов в минуту на IP для /auth
	MaxPageSize     int           `mapstructure:"max_page_size"`
}

// MongoConfig включает хранение записей в MongoDB, если задан URI
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

var serverFlags = flagKeys{
	"config":     "config",
	"addr":       "address",
	"metrics":    "metrics_address",
	"db":         "db_path",
	"jwt-secret": "jwt_secret",
	"mongo-uri":  "mongo.uri",
	"log-level":  "log.level",
	"log-file":   "log.file",
}

// BindServerFlags регистрирует флаги сервера
func BindServerFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file")
	fs.String("addr", ":8080", "HTTP listen address")
	fs.String("metrics", ":9090", "Metrics listen address, empty to serve /metrics on the main listener")
	fs.String("db", "studysync-server.db", "Path to SQLite database")
	fs.String("jwt-secret", "", "Secret for signing access tokens")
	fs.String("mongo-uri", "", "MongoDB URI for record storage (optional)")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Log file with rotation, stdout if empty")
}

func serverDefaults() map[string]any {
	return map[string]any{
		"config":            "",
		"address":           ":8080",
		"metrics_address":   ":9090",
		"db_path":           "studysync-server.db",
		"jwt_secret":        "",
		"mongo.uri":         "",
		"mongo.database":    "studysync",
		"mongo.collection":  "records",
		"log.level":         "info",
		"log.format":        "json",
		"log.file":          "",
		"log.max_size_mb":   100,
		"log.max_backups":   5,
		"log.max_age_days":  30,
		"access_token_ttl":  15 * time.Minute,
		"refresh_token_ttl": 30 * 24 * time.Hour,
		"shutdown_timeout":  10 * time.Second,
		"rate_limit":        60,
		"max_page_size":     500,
	}
}

// LoadServer загружает настройки сервера. flags может быть nil.
func LoadServer(flags *pflag.FlagSet) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := load(serverDefaults(), flags, serverFlags, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет настройки сервера
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("%w: listen address is required", ErrInvalidConfig)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: db path is required", ErrInvalidConfig)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%w: jwt secret must be at least 32 bytes", ErrInvalidConfig)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: token ttl must be positive", ErrInvalidConfig)
	}
	if c.MaxPageSize <= 0 {
		return fmt.Errorf("%w: max page size must be positive", ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
