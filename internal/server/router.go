// Package server собирает HTTP маршруты эталонного сервера
package server

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/studysync/internal/server/handlers"
	"github.com/iudanet/studysync/internal/server/jwt"
	"github.com/iudanet/studysync/internal/server/middleware"
	"github.com/iudanet/studysync/internal/server/storage"
)

const healthPath = "/api/v1/health"

// Deps зависимости маршрутизатора
type Deps struct {
	Logger  *slog.Logger
	Users   storage.UserStorage
	Tokens  storage.TokenStorage
	Records storage.RecordStorage
	JWT     *jwt.Service

	// Limiter ограничивает маршруты /auth; nil отключает ограничение
	Limiter *middleware.RateLimiter

	// Metrics монтируется на /metrics основного листенера, если не nil
	Metrics http.Handler

	Pingers     []handlers.Pinger
	MaxPageSize int
}

// NewRouter возвращает обработчик со всеми маршрутами и цепочкой middleware:
// recovery → logging → rate limit (auth) → JWT auth
func NewRouter(d Deps) http.Handler {
	authHandler := handlers.NewAuthHandler(d.Logger, d.Users, d.Tokens, d.JWT)
	sessionHandler := handlers.NewSessionHandler(d.Logger)
	recordsHandler := handlers.NewRecordsHandler(d.Logger, d.Records, d.MaxPageSize)
	healthHandler := handlers.NewHealthHandler(d.Logger, d.Pingers...)

	limited := func(h http.HandlerFunc) http.Handler {
		if d.Limiter == nil {
			return h
		}
		return d.Limiter.Middleware(h)
	}
	authenticated := middleware.AuthMiddleware(d.Logger, d.JWT)

	mux := http.NewServeMux()

	// Public endpoints
	mux.Handle("POST /api/v1/auth/register", limited(authHandler.Register))
	mux.Handle("POST /api/v1/auth/login", limited(authHandler.Login))
	mux.Handle("POST /api/v1/auth/refresh", limited(authHandler.Refresh))
	mux.HandleFunc("GET "+healthPath, healthHandler.Health)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	// Protected endpoints
	mux.Handle("POST /api/v1/auth/logout", authenticated(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("GET /api/v1/session", authenticated(http.HandlerFunc(sessionHandler.Session)))
	mux.Handle("GET /api/v1/records", authenticated(http.HandlerFunc(recordsHandler.Pull)))
	mux.Handle("POST /api/v1/records/mutations", authenticated(http.HandlerFunc(recordsHandler.Mutate)))

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(d.Logger, healthPath, "/metrics")(handler)
	handler = middleware.RecoveryMiddleware(d.Logger)(handler)
	return handler
}
