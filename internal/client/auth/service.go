package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/clock"
	"github.com/iudanet/studysync/internal/syncerr"
	"github.com/iudanet/studysync/internal/validation"
	pkgapi "github.com/iudanet/studysync/pkg/api"
)

// ErrNotSignedIn нет сохраненной сессии
var ErrNotSignedIn = errors.New("not signed in")

// Service предоставляет функции авторизации и хранит сессию
type Service struct {
	remote  Remote
	store   storage.AuthStorage
	monitor *Monitor
	clock   clock.Clock
	logger  *slog.Logger
}

// NewService создает новый сервис авторизации
func NewService(remote Remote, store storage.AuthStorage, monitor *Monitor, c clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		remote:  remote,
		store:   store,
		monitor: monitor,
		clock:   c,
		logger:  logger,
	}
}

// Monitor возвращает монитор событий сессии
func (s *Service) Monitor() *Monitor {
	return s.monitor
}

// Register регистрирует нового пользователя и открывает сессию
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	resp, err := s.remote.Register(ctx, pkgapi.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	return s.open(ctx, username, resp, SignedIn)
}

// Login выполняет аутентификацию пользователя и открывает сессию
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", validation.ErrInvalidPassword)
	}

	resp, err := s.remote.Login(ctx, pkgapi.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return s.open(ctx, username, resp, SignedIn)
}

// Restore публикует SignedIn для сессии, сохраненной при прошлом запуске
func (s *Service) Restore(ctx context.Context) (*Session, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "session restored", slog.String("username", sess.Username))
	s.monitor.Publish(Event{Kind: SignedIn, Session: sess})
	return sess, nil
}

// Current возвращает сохраненную сессию
func (s *Service) Current(ctx context.Context) (*Session, error) {
	data, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotSignedIn
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	return &Session{
		UserID:       data.UserID,
		Username:     data.Username,
		AccessToken:  data.AccessToken,
		RefreshToken: data.RefreshToken,
		ExpiresAt:    time.Unix(data.ExpiresAt, 0).UTC(),
	}, nil
}

// Refresh обновляет токены. Если сервер отверг refresh token, сессия закрывается.
func (s *Service) Refresh(ctx context.Context) (*Session, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.remote.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if syncerr.IsUnauthorized(err) {
			s.logger.WarnContext(ctx, "refresh token rejected, signing out", slog.Any("error", err))
			if closeErr := s.close(ctx); closeErr != nil {
				return nil, closeErr
			}
		}
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if resp.UserID == "" {
		resp.UserID = sess.UserID
	}

	return s.open(ctx, sess.Username, resp, TokenRefreshed)
}

// Logout отзывает refresh token на сервере и удаляет локальную сессию.
// Ошибка сервера не мешает локальному выходу.
func (s *Service) Logout(ctx context.Context) error {
	sess, err := s.Current(ctx)
	if err != nil {
		return err
	}

	if err := s.remote.Logout(ctx, sess.AccessToken, sess.RefreshToken); err != nil {
		s.logger.WarnContext(ctx, "server logout failed", slog.Any("error", err))
	}

	return s.close(ctx)
}

func (s *Service) open(ctx context.Context, username string, resp *pkgapi.TokenResponse, kind EventKind) (*Session, error) {
	sess := &Session{
		UserID:       resp.UserID,
		Username:     username,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if exp, ok := TokenExpiry(resp.AccessToken); ok {
		sess.ExpiresAt = exp.UTC()
	}

	err := s.store.SaveAuth(ctx, &storage.AuthData{
		Username:     sess.Username,
		UserID:       sess.UserID,
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresAt:    sess.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.InfoContext(ctx, "session updated",
		slog.String("event", kind.String()),
		slog.String("username", username))

	s.monitor.Publish(Event{Kind: kind, Session: sess})
	return sess, nil
}

func (s *Service) close(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil && !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.InfoContext(ctx, "signed out")
	s.monitor.Publish(Event{Kind: SignedOut})
	return nil
}
