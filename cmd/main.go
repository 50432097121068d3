package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/okian/pong/internal/adapters/http/api"
	"github.com/okian/pong/internal/adapters/http/swagger"
	repository "github.com/okian/pong/internal/adapters/repository"
	app "github.com/okian/pong/internal/app"
	"github.com/okian/pong/internal/config"
	"github.com/okian/pong/internal/domain/rating"
	"github.com/okian/pong/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "pong stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, cfg),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newService opens the configured store and builds the ladder service.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	opts := []repository.SQLOption{
		repository.WithMaxOpenConns(cfg.StoreMaxOpenConns),
		repository.WithConnMaxLifetime(time.Duration(cfg.StoreConnMaxLifetimeSec) * time.Second),
	}
	if !cfg.StoreMigrate {
		opts = append(opts, repository.WithoutMigrations())
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	log.Info(ctx, "store opened", logger.String("driver", cfg.StoreDriver))

	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithDefaultRating(cfg.DefaultRating),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithRatingOptions(
			rating.WithBaseK(cfg.BaseK),
			rating.WithKBounds(cfg.MinK, cfg.MaxK),
			rating.WithWindow(cfg.KWindow),
		),
	), nil
}

// newHandler mounts the docs and business API routes.
func newHandler(ctx context.Context, svc *app.Service, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	apiServer := api.NewServer(svc,
		api.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		api.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
		api.WithCORSOrigins(cfg.CORSAllowedOrigins),
		api.WithLogger(logger.Named("api")),
	)
	apiServer.Register(ctx, r)
	swagger.Register(ctx, r)
	return r
}

// startServiceMetricsUpdater refreshes the player and match gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats updates the gauges as a side effect.
			_ = svc.GetStats()
		}
	}
}
