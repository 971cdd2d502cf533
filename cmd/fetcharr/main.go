package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	v1 "github.com/fetcharr/fetcharr/api/v1"
	"github.com/fetcharr/fetcharr/internal/config"
	"github.com/fetcharr/fetcharr/internal/events"
	"github.com/fetcharr/fetcharr/internal/manager"
	"github.com/fetcharr/fetcharr/internal/metrics"
	"github.com/fetcharr/fetcharr/internal/provider"
	"github.com/fetcharr/fetcharr/internal/qbit"
	"github.com/fetcharr/fetcharr/internal/repo"
	"github.com/fetcharr/fetcharr/internal/router"
)

func newLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

func newRepo(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repo.DownloadRepo, error) {
	if cfg.RepoBackend == "postgres" {
		pg, err := repo.NewPostgresRepoFromEnv()
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	store := repo.NewFileSnapshotStore(cfg.SnapshotFile)
	r := repo.NewInMemoryDownloadRepo(store)
	if err := r.Restore(ctx); err != nil {
		return nil, err
	}
	logger.Info("restored snapshot", "path", cfg.SnapshotFile)
	return r, nil
}

func newProviders(cfg *config.Config, logger *slog.Logger) []provider.Provider {
	// Order is fixed so merge results stay deterministic across restarts.
	return []provider.Provider{
		provider.NewYTS(logger, "", cfg.YTSEnabled),
		provider.NewPirateBay(logger, "", cfg.PirateBayEnabled),
		provider.NewEZTV(logger, "", cfg.EZTVEnabled),
		provider.NewTorznab(logger, cfg.TorznabURL, cfg.TorznabKey),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	downloadRepo, err := newRepo(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise repository", "backend", cfg.RepoBackend, "err", err)
		os.Exit(1)
	}

	client := qbit.New(qbit.Config{
		URL:      cfg.QbitURL,
		Username: cfg.QbitUsername,
		Password: cfg.QbitPassword,
		Enabled:  cfg.QbitEnabled,
		Timeout:  cfg.QbitTimeout,
	})

	bus := events.NewBroadcaster()
	mgr := manager.New(logger, downloadRepo, client, bus, manager.Config{
		SavePath:          cfg.SavePath,
		MovieCategory:     cfg.MovieCategory,
		EpisodeCategory:   cfg.EpisodeCategory,
		ReconcileInterval: cfg.ReconcileInterval,
	})
	go mgr.Run(ctx)

	agg := provider.NewAggregator(logger, newProviders(cfg, logger), cfg.ProviderTimeout)
	handler := v1.NewHandler(logger, mgr, agg, bus)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router.New(logger, handler, client, cfg.APIToken),
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // websocket streams need unbounded writes
	}

	go func() {
		logger.Info("starting fetcharr", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("received terminate, graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
