package auth

import (
	"context"

	pkgapi "github.com/iudanet/studysync/pkg/api"
)

//go:generate moq -out remote_mock.go . Remote

// Remote defines the server-side authentication endpoints
// Implemented by api.Client.
type Remote interface {
	// Register создает пользователя и сразу возвращает токены
	Register(ctx context.Context, req pkgapi.RegisterRequest) (*pkgapi.TokenResponse, error)

	// Login выполняет аутентификацию пользователя
	Login(ctx context.Context, req pkgapi.LoginRequest) (*pkgapi.TokenResponse, error)

	// Refresh обменивает refresh token на новую пару токенов
	Refresh(ctx context.Context, refreshToken string) (*pkgapi.TokenResponse, error)

	// Logout отзывает refresh token
	Logout(ctx context.Context, accessToken, refreshToken string) error
}
