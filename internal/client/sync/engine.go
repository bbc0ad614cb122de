// Package sync реализует движок синхронизации локального хранилища с удаленным:
// отправку журнала изменений, получение изменений по курсору, разрешение конфликтов,
// backoff и реакцию на события сессии.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/clock"
	"github.com/iudanet/studysync/internal/metrics"
	"github.com/iudanet/studysync/internal/syncerr"
)

// ErrSuspended движок приостановлен: нет сессии или приложение в фоне
var ErrSuspended = errors.New("sync engine is suspended")

// Engine движок синхронизации. Одновременно выполняется не более одного цикла.
type Engine struct {
	remote   RemoteStore
	stores   storage.UserStores
	notifier HealthNotifier
	clock    clock.Clock
	logger   *slog.Logger
	trigger  chan struct{}

	backoff      retry.Backoff
	backoffUntil time.Time
	lastSyncedAt time.Time
	cancelCycle  context.CancelFunc

	userID    string
	token     string
	lastError string

	cfg Config

	cycleMu stdsync.Mutex
	mu      stdsync.Mutex

	// epoch меняется при входе, выходе и паузе; результаты устаревшего цикла отбрасываются
	epoch    uint64
	state    State
	pending  int
	parked   int
	verified bool
	paused   bool
}

// Option настраивает Engine
type Option func(*Engine)

// WithClock подменяет источник времени
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithNotifier задает получателя изменений Health
func WithNotifier(n HealthNotifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// NewEngine создает движок в состоянии Suspended.
// Каждый цикл работает с разделом stores пользователя текущей сессии.
func NewEngine(remote RemoteStore, stores storage.UserStores, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:  remote,
		stores:  stores,
		cfg:     cfg.withDefaults(),
		clock:   clock.Real(),
		logger:  logger,
		trigger: make(chan struct{}, 1),
		state:   StateSuspended,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.backoff = e.newBackoff()
	metrics.SyncState.Set(float64(StateSuspended))
	return e
}

func (e *Engine) newBackoff() retry.Backoff {
	b := retry.NewExponential(e.cfg.BackoffMin)
	if e.cfg.BackoffJitterPercent > 0 {
		b = retry.WithJitterPercent(e.cfg.BackoffJitterPercent, b)
	}
	return retry.WithCappedDuration(e.cfg.BackoffMax, b)
}

// State возвращает текущее состояние
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Health возвращает текущий снимок состояния
func (e *Engine) Health() Health {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.healthLocked()
}

func (e *Engine) healthLocked() Health {
	return Health{
		State:        e.state,
		LastSyncedAt: e.lastSyncedAt,
		LastError:    e.lastError,
		Pending:      e.pending,
		Parked:       e.parked,
		Degraded:     e.parked > 0,
	}
}

// BackoffUntil возвращает момент окончания backoff (нулевое время вне Backoff)
func (e *Engine) BackoffUntil() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateBackoff {
		return time.Time{}
	}
	return e.backoffUntil
}

// HandleAuthEvent реагирует на события сессии. Подписывается на auth.Monitor.
func (e *Engine) HandleAuthEvent(ev auth.Event) {
	e.mu.Lock()
	switch ev.Kind {
	case auth.SignedIn:
		if ev.Session == nil {
			e.mu.Unlock()
			return
		}
		e.stopCycleLocked()
		e.userID = ev.Session.UserID
		e.token = ev.Session.AccessToken
		e.verified = false
		e.lastError = ""
		e.pending, e.parked = 0, 0
		e.backoff = e.newBackoff()
		if !e.paused {
			e.setStateLocked(StateAuthenticating)
		}
	case auth.TokenRefreshed:
		if ev.Session == nil {
			e.mu.Unlock()
			return
		}
		// токен меняется без перезапуска текущего цикла
		e.token = ev.Session.AccessToken
		if ev.Session.UserID != "" {
			e.userID = ev.Session.UserID
		}
		if e.state == StateSuspended && !e.paused && !e.verified {
			e.setStateLocked(StateAuthenticating)
		}
	case auth.SignedOut:
		e.stopCycleLocked()
		e.userID = ""
		e.token = ""
		e.verified = false
		e.pending, e.parked = 0, 0
		metrics.SyncPending.Set(0)
		e.setStateLocked(StateSuspended)
	}
	h := e.healthLocked()
	e.mu.Unlock()

	e.logger.Info("Session event received", slog.String("event", ev.Kind.String()), slog.String("state", h.State.String()))
	e.notify(h)
	if ev.Kind == auth.SignedIn {
		e.refreshPending(context.Background())
	}
	e.wake()
}

// Pause приостанавливает синхронизацию, сессия сохраняется
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = true
	e.stopCycleLocked()
	e.setStateLocked(StateSuspended)
	h := e.healthLocked()
	e.mu.Unlock()

	e.logger.Info("Sync paused")
	e.notify(h)
	e.wake()
}

// Resume возобновляет синхронизацию, если есть сессия
func (e *Engine) Resume() {
	e.mu.Lock()
	if !e.paused {
		e.mu.Unlock()
		return
	}
	e.paused = false
	e.epoch++
	if e.token != "" {
		if e.verified {
			e.setStateLocked(StateIdle)
		} else {
			e.setStateLocked(StateAuthenticating)
		}
	}
	h := e.healthLocked()
	e.mu.Unlock()

	e.logger.Info("Sync resumed", slog.String("state", h.State.String()))
	e.notify(h)
	e.wake()
}

// NotifyLocalChange сообщает о локальной правке и обновляет Health.Pending.
// Не ждет текущего цикла.
func (e *Engine) NotifyLocalChange() {
	e.refreshPending(context.Background())
	e.wake()
}

// refreshPending пересчитывает размер очереди пользователя сессии
func (e *Engine) refreshPending(ctx context.Context) {
	e.mu.Lock()
	userID := e.userID
	e.mu.Unlock()
	if userID == "" {
		return
	}

	store, err := e.stores.ForUser(ctx, userID)
	if err != nil {
		e.logger.Warn("Failed to open user store", slog.Any("error", err))
		return
	}
	pending, parked, err := store.PendingCount(ctx)
	if err != nil {
		e.logger.Warn("Failed to count pending changes", slog.Any("error", err))
		return
	}

	e.mu.Lock()
	if e.userID != userID || (e.pending == pending && e.parked == parked) {
		e.mu.Unlock()
		return
	}
	e.pending, e.parked = pending, parked
	metrics.SyncPending.Set(float64(pending))
	h := e.healthLocked()
	e.mu.Unlock()

	e.notify(h)
}

// RequestSync запрашивает внеочередной цикл
func (e *Engine) RequestSync() {
	e.wake()
}

// ConnectivityRestored досрочно завершает backoff
func (e *Engine) ConnectivityRestored() {
	e.mu.Lock()
	if e.state == StateBackoff {
		e.backoffUntil = e.clock.Now()
	}
	e.mu.Unlock()
	e.wake()
}

func (e *Engine) wake() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Run фоновый цикл движка. Завершается при отмене ctx.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("Sync engine started")
	for {
		var timer clock.Timer
		var timeout <-chan time.Time
		if d, ok := e.nextWakeup(); ok {
			timer = e.clock.NewTimer(d)
			timeout = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			e.mu.Lock()
			e.stopCycleLocked()
			e.mu.Unlock()
			e.logger.Info("Sync engine stopped")
			return ctx.Err()
		case <-e.trigger:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}

		e.step(ctx)
	}
}

// nextWakeup возвращает задержку до следующего планового шага
func (e *Engine) nextWakeup() (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StatePushing, StatePulling:
		// цикл идет в SyncNow; опрос продолжается после него
		return e.cfg.PollInterval, true
	case StateBackoff:
		d := e.backoffUntil.Sub(e.clock.Now())
		if d < 0 {
			d = 0
		}
		return d, true
	case StateAuthenticating:
		return 0, true
	default:
		return 0, false
	}
}

// step выполняет работу, положенную текущему состоянию
func (e *Engine) step(ctx context.Context) {
	e.mu.Lock()
	state := e.state
	verified := e.verified
	waiting := state == StateBackoff && e.clock.Now().Before(e.backoffUntil)
	e.mu.Unlock()

	if waiting {
		return
	}

	var err error
	switch {
	case state == StateSuspended:
		return
	case state == StateAuthenticating, state == StateBackoff && !verified:
		err = e.authenticate(ctx)
	default:
		_, err = e.runCycle(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrSuspended) {
		e.logger.Warn("Sync step failed", slog.Any("error", err))
	}
}

// SyncNow синхронно выполняет один цикл независимо от backoff
func (e *Engine) SyncNow(ctx context.Context) (*CycleResult, error) {
	e.mu.Lock()
	if e.token == "" || e.paused {
		e.mu.Unlock()
		return nil, ErrSuspended
	}
	verified := e.verified
	e.mu.Unlock()

	if !verified {
		if err := e.authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return e.runCycle(ctx)
}

// authenticate проверяет токен на сервере
func (e *Engine) authenticate(ctx context.Context) error {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.mu.Lock()
	if e.token == "" || e.paused {
		e.mu.Unlock()
		return ErrSuspended
	}
	epoch := e.epoch
	token := e.token
	e.setStateLocked(StateAuthenticating)
	h := e.healthLocked()
	e.mu.Unlock()
	e.notify(h)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.RemoteTimeout)
	err := e.remote.VerifySession(callCtx, token)
	cancel()

	switch {
	case err == nil:
		e.logger.Info("Session verified")
		e.transition(epoch, func() {
			e.verified = true
			e.lastError = ""
			e.backoff = e.newBackoff()
			e.setStateLocked(StateIdle)
		})
		e.wake()
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case syncerr.IsUnauthorized(err):
		e.logger.Warn("Session rejected by server", slog.Any("error", err))
		e.transition(epoch, func() {
			e.lastError = err.Error()
			e.setStateLocked(StateSuspended)
		})
	default:
		e.logger.Warn("Session verification failed", slog.Any("error", err))
		e.transition(epoch, func() {
			e.enterBackoffLocked(err)
		})
	}
	return err
}

// runCycle выполняет push, затем pull
func (e *Engine) runCycle(ctx context.Context) (*CycleResult, error) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.mu.Lock()
	if e.token == "" || e.paused || !e.verified {
		e.mu.Unlock()
		return nil, ErrSuspended
	}
	epoch := e.epoch
	userID := e.userID
	e.mu.Unlock()

	store, err := e.stores.ForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	e.mu.Lock()
	if e.epoch != epoch || e.paused {
		e.mu.Unlock()
		return nil, ErrSuspended
	}
	cycleCtx, cancel := context.WithCancel(ctx)
	e.cancelCycle = cancel
	e.setStateLocked(StatePushing)
	h := e.healthLocked()
	e.mu.Unlock()
	e.notify(h)

	defer func() {
		cancel()
		e.mu.Lock()
		if e.epoch == epoch {
			e.cancelCycle = nil
		}
		e.mu.Unlock()
	}()

	start := e.clock.Now()
	c := &cycle{Engine: e, store: store, result: &CycleResult{}, userID: userID, epoch: epoch}
	e.logger.Info("Starting sync cycle", slog.String("user_id", userID))

	err = c.push(cycleCtx)
	if err == nil {
		if !e.transition(epoch, func() { e.setStateLocked(StatePulling) }) {
			return c.result, context.Canceled
		}
		err = c.pull(cycleCtx)
	}
	c.result.Duration = e.clock.Now().Sub(start)

	e.finishCycle(ctx, c, err)
	return c.result, err
}

// finishCycle переводит движок в состояние по итогам цикла
func (e *Engine) finishCycle(ctx context.Context, c *cycle, err error) {
	epoch, result := c.epoch, c.result
	pending, parked, countErr := c.store.PendingCount(ctx)
	if countErr != nil {
		e.logger.Warn("Failed to count pending changes", slog.Any("error", countErr))
	}

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		status = "canceled"
	case syncerr.IsUnauthorized(err):
		status = "unauthorized"
	default:
		status = "error"
	}
	metrics.SyncCycleSeconds.WithLabelValues(status).Observe(result.Duration.Seconds())

	e.transition(epoch, func() {
		if countErr == nil {
			e.pending, e.parked = pending, parked
			metrics.SyncPending.Set(float64(pending))
		}
		switch status {
		case "ok":
			e.lastSyncedAt = e.clock.Now()
			e.lastError = ""
			e.backoff = e.newBackoff()
			e.setStateLocked(StateIdle)
		case "canceled":
			e.setStateLocked(StateIdle)
		case "unauthorized":
			e.verified = false
			e.lastError = err.Error()
			e.setStateLocked(StateSuspended)
		default:
			e.enterBackoffLocked(err)
		}
	})

	if err != nil {
		e.logger.Warn("Sync cycle failed",
			slog.Any("error", err),
			slog.Int("pushed", result.Pushed),
			slog.Int("pulled", result.Pulled))
		return
	}
	e.logger.Info("Sync cycle completed",
		slog.Int("pushed", result.Pushed),
		slog.Int("pulled", result.Pulled),
		slog.Int("conflicts", result.Conflicts),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
		slog.Int("parked", result.Parked),
		slog.Duration("duration", result.Duration))
}

// transition применяет изменение состояния, если цикл не устарел, и уведомляет о нем
func (e *Engine) transition(epoch uint64, fn func()) bool {
	e.mu.Lock()
	if e.epoch != epoch || e.paused {
		e.mu.Unlock()
		return false
	}
	fn()
	h := e.healthLocked()
	e.mu.Unlock()

	e.notify(h)
	return true
}

func (e *Engine) enterBackoffLocked(cause error) {
	delay, _ := e.backoff.Next()
	if hint := syncerr.RetryAfter(cause); hint > delay {
		delay = hint
	}
	e.backoffUntil = e.clock.Now().Add(delay)
	e.lastError = cause.Error()
	e.setStateLocked(StateBackoff)
	metrics.SyncBackoffsTotal.Inc()
	e.logger.Info("Sync backing off", slog.Duration("delay", delay))
}

func (e *Engine) setStateLocked(s State) {
	if e.state == s {
		return
	}
	e.logger.Debug("Sync state changed", slog.String("from", e.state.String()), slog.String("to", s.String()))
	e.state = s
	metrics.SyncState.Set(float64(s))
}

// stopCycleLocked отменяет текущий цикл и делает его результаты недействительными
func (e *Engine) stopCycleLocked() {
	e.epoch++
	if e.cancelCycle != nil {
		e.cancelCycle()
		e.cancelCycle = nil
	}
}

func (e *Engine) notify(h Health) {
	if e.notifier != nil {
		e.notifier.OnSyncHealthChanged(h)
	}
}
