package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/studysync/internal/config"
	"github.com/iudanet/studysync/internal/metrics"
	"github.com/iudanet/studysync/internal/server"
	"github.com/iudanet/studysync/internal/server/handlers"
	"github.com/iudanet/studysync/internal/server/jwt"
	"github.com/iudanet/studysync/internal/server/middleware"
	"github.com/iudanet/studysync/internal/server/storage"
	"github.com/iudanet/studysync/internal/server/storage/mongodb"
	"github.com/iudanet/studysync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// tokenSweepInterval период удаления истекших refresh токенов
const tokenSweepInterval = time.Hour

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "studysync-server",
		Short:         "StudySync reference remote store",
		Version:       fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServer(cmd.Flags())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}

			logger, err := config.NewLogger(cfg.Log.Writer(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("Server stopped with error", slog.Any("error", err))
				return err
			}
			return nil
		},
	}
	config.BindServerFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	logger.Info("StudySync server starting",
		slog.String("version", Version),
		slog.String("address", cfg.Address),
		slog.String("db_path", cfg.DBPath))

	store, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", slog.Any("error", err))
		}
	}()

	pingers := []handlers.Pinger{store}
	var records storage.RecordStorage = store

	if cfg.Mongo.URI != "" {
		client, err := mongodb.Connect(ctx, cfg.Mongo.URI, logger)
		if err != nil {
			return err
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Error("Failed to disconnect from MongoDB", slog.Any("error", err))
			}
		}()

		db := client.Database(cfg.Mongo.Database)
		if err := mongodb.EnsureIndexes(ctx, db.Collection(cfg.Mongo.Collection)); err != nil {
			return err
		}
		records = mongodb.NewFromDatabase(db, cfg.Mongo.Collection, logger)
		pingers = append(pingers, mongoPinger(client))
		logger.Info("Records stored in MongoDB",
			slog.String("database", cfg.Mongo.Database),
			slog.String("collection", cfg.Mongo.Collection))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.ServerCollectors()...)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	limiter := middleware.NewRateLimiter(cfg.RateLimit, time.Minute, logger)

	deps := server.Deps{
		Logger:      logger,
		Users:       store,
		Tokens:      store,
		Records:     records,
		JWT:         jwt.NewService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Pingers:     pingers,
		MaxPageSize: cfg.MaxPageSize,
	}
	if cfg.RateLimit > 0 {
		deps.Limiter = limiter
	}
	if cfg.MetricsAddress == "" {
		deps.Metrics = metricsHandler
	}

	servers := []*http.Server{{
		Addr:              cfg.Address,
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", metricsHandler)
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("Listening", slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	if deps.Limiter != nil {
		g.Go(func() error {
			return limiter.Run(gctx)
		})
	}

	g.Go(func() error {
		return sweepExpiredTokens(gctx, store, logger)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

// sweepExpiredTokens периодически удаляет истекшие refresh токены
func sweepExpiredTokens(ctx context.Context, tokens storage.TokenStorage, logger *slog.Logger) error {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			n, err := tokens.DeleteExpiredTokens(ctx, now.UTC())
			if err != nil {
				logger.Error("Failed to delete expired tokens", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("Expired refresh tokens deleted", slog.Int("count", n))
			}
		}
	}
}

func mongoPinger(client *mongo.Client) handlers.Pinger {
	return handlers.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx, nil)
	})
}
