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
	"github.com/spf13/pflag"

	"github.com/iudanet/studysync/internal/client/api"
	"github.com/iudanet/studysync/internal/client/auth"
	"github.com/iudanet/studysync/internal/client/cli"
	"github.com/iudanet/studysync/internal/client/data"
	"github.com/iudanet/studysync/internal/client/iocli"
	"github.com/iudanet/studysync/internal/client/storage/boltdb"
	"github.com/iudanet/studysync/internal/client/sync"
	"github.com/iudanet/studysync/internal/clock"
	"github.com/iudanet/studysync/internal/config"
	"github.com/iudanet/studysync/internal/metrics"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	version := fmt.Sprintf("%s (built %s, commit %s)", Version, BuildDate, GitCommit)
	root := cli.NewRootCmd(version, open, config.BindClientFlags)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// open собирает клиент: bbolt хранилище, HTTP клиент, сессия, движок синхронизации
func open(ctx context.Context, flags *pflag.FlagSet) (*cli.Cli, func() error, error) {
	cfg, err := config.LoadClient(flags)
	if err != nil {
		return nil, nil, err
	}

	// Логи в stderr, чтобы не смешивать с выводом команд
	logger, err := config.NewLogger(os.Stderr, cfg.LogLevel, "text")
	if err != nil {
		return nil, nil, err
	}

	store, err := boltdb.New(ctx, cfg.DBPath, boltdb.WithRetryPolicy(cfg.Sync.RetryPolicy()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	stdio := iocli.NewStdio()
	client := api.NewClient(cfg.ServerURL)
	printer := cli.NewHealthPrinter(stdio)

	engine := sync.NewEngine(client, store, cfg.Sync.Engine(), logger, sync.WithNotifier(printer))

	monitor := auth.NewMonitor()
	monitor.Subscribe(engine.HandleAuthEvent)
	authService := auth.NewService(client, store, monitor, clock.Real(), logger)

	openData := func(ctx context.Context, userID string) (data.Service, error) {
		records, err := store.ForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		return data.NewService(records, logger, data.WithChangeHook(engine.NotifyLocalChange)), nil
	}

	deps := cli.Deps{
		IO:        stdio,
		Auth:      authService,
		Data:      openData,
		Engine:    engine,
		Journal:   store,
		Refresher: auth.NewRefresher(authService, clock.Real(), logger),
		Health:    printer,
	}
	if cfg.MetricsAddress != "" {
		deps.Metrics = newMetricsServer(cfg.MetricsAddress, logger)
	}

	return cli.New(deps), store.Close, nil
}

// metricsServer отдает метрики движка синхронизации в режиме sync --watch
type metricsServer struct {
	srv    *http.Server
	logger *slog.Logger
}

func newMetricsServer(addr string, logger *slog.Logger) *metricsServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.ClientCollectors()...)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &metricsServer{
		srv:    &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		logger: logger,
	}
}

// Run обслуживает /metrics до отмены ctx
func (m *metricsServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.srv.Shutdown(shutdownCtx); err != nil {
			m.logger.Error("Failed to shutdown metrics server", slog.Any("error", err))
		}
	}()

	m.logger.Info("Serving metrics", slog.String("address", m.srv.Addr))
	if err := m.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve metrics: %w", err)
	}
	return nil
}
