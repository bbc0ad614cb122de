package sync

import "time"

// Config настройки движка синхронизации
type Config struct {
	PushBatchSize      int
	PullPageSize       int
	MaxConflictRetries int
	RemoteTimeout      time.Duration // RemoteTimeout дедлайн одного вызова удаленного хранилища
	BackoffMin         time.Duration
	BackoffMax         time.Duration
	PollInterval       time.Duration // PollInterval периодическая синхронизация в Idle
	// BackoffJitterPercent разброс задержки backoff в процентах, 0 отключает разброс
	BackoffJitterPercent uint64
}

// DefaultConfig возвращает настройки по умолчанию
func DefaultConfig() Config {
	return Config{
		PushBatchSize:        50,
		PullPageSize:         100,
		MaxConflictRetries:   3,
		RemoteTimeout:        15 * time.Second,
		BackoffMin:           time.Second,
		BackoffMax:           5 * time.Minute,
		BackoffJitterPercent: 20,
		PollInterval:         5 * time.Minute,
	}
}

// withDefaults заполняет незаданные поля значениями по умолчанию
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PushBatchSize <= 0 {
		c.PushBatchSize = def.PushBatchSize
	}
	if c.PullPageSize <= 0 {
		c.PullPageSize = def.PullPageSize
	}
	if c.MaxConflictRetries < 0 {
		c.MaxConflictRetries = def.MaxConflictRetries
	}
	if c.RemoteTimeout <= 0 {
		c.RemoteTimeout = def.RemoteTimeout
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = def.BackoffMin
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = c.BackoffMin
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}
