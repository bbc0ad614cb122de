package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/studysync/internal/clock"
)

const (
	defaultRefreshLead  = time.Minute
	defaultRefreshRetry = 30 * time.Second
)

// Refresher обновляет access token заранее, до истечения claim exp
type Refresher struct {
	svc        *Service
	clock      clock.Clock
	logger     *slog.Logger
	wake       chan struct{}
	lead       time.Duration
	retryDelay time.Duration
}

// NewRefresher создает планировщик обновления токенов
func NewRefresher(svc *Service, c clock.Clock, logger *slog.Logger) *Refresher {
	return &Refresher{
		svc:        svc,
		clock:      c,
		logger:     logger,
		wake:       make(chan struct{}, 1),
		lead:       defaultRefreshLead,
		retryDelay: defaultRefreshRetry,
	}
}

// Run работает до отмены контекста
func (r *Refresher) Run(ctx context.Context) error {
	unsubscribe := r.svc.Monitor().Subscribe(func(Event) {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	delay := time.Duration(-1)
	for {
		if delay < 0 {
			var ok bool
			delay, ok = r.nextDelay(ctx)
			if !ok {
				// Нет сессии: ждем входа
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-r.wake:
					continue
				}
			}
		}

		timer := r.clock.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-r.wake:
			timer.Stop()
			delay = -1
			continue
		case <-timer.C():
		}

		delay = -1
		if _, err := r.svc.Refresh(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			if errors.Is(err, ErrNotSignedIn) {
				continue
			}
			r.logger.WarnContext(ctx, "token refresh failed", slog.Any("error", err))
			delay = r.retryDelay
		}
	}
}

func (r *Refresher) nextDelay(ctx context.Context) (time.Duration, bool) {
	sess, err := r.svc.Current(ctx)
	if err != nil {
		return 0, false
	}

	exp := sess.ExpiresAt
	if jwtExp, ok := TokenExpiry(sess.AccessToken); ok {
		exp = jwtExp
	}

	d := exp.Sub(r.clock.Now()) - r.lead
	if d < 0 {
		d = 0
	}
	return d, true
}
