package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angeloszaimis/azure-vote/config"
	"github.com/angeloszaimis/azure-vote/internal/handler"
	"github.com/angeloszaimis/azure-vote/internal/healthcheck"
	"github.com/angeloszaimis/azure-vote/internal/httpserver"
	"github.com/angeloszaimis/azure-vote/internal/metrics"
	"github.com/angeloszaimis/azure-vote/internal/store"
	"github.com/angeloszaimis/azure-vote/internal/view"
	"github.com/angeloszaimis/azure-vote/internal/vote"
	"github.com/angeloszaimis/azure-vote/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", slog.Any("err", err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	redisStore, voteService, err := initializeStore(ctx, cfg)
	if err != nil {
		msg := "Failed to initialize Redis counters, terminating."
		if errors.Is(err, store.ErrUnreachable) {
			msg = "Failed to connect to Redis, terminating."
		}
		log.Error(msg, slog.String("addr", cfg.Store.Addr()), slog.Any("err", err))
		os.Exit(1)
	}
	defer redisStore.Close()

	interval, err := time.ParseDuration(cfg.HealthCheck.Interval)
	if err != nil {
		log.Error("Invalid health check interval", slog.Any("err", err))
		os.Exit(1)
	}

	metricsCollector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	metricsCollector.Start(ctx)

	monitor := healthcheck.NewMonitor(redisStore, interval, log, metricsCollector)
	go monitor.Run(ctx)

	renderer, err := view.New()
	if err != nil {
		log.Error("Failed to parse templates", slog.Any("err", err))
		os.Exit(1)
	}

	voteHandler := handler.NewVoteHandler(log, voteService, renderer, metricsCollector)
	router := setupRouter(log, cfg.Session, voteHandler, metricsCollector, monitor)

	if err := run(ctx, log, cfg.Server, router); err != nil {
		log.Error("Server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// initializeStore connects to Redis and makes sure both counters exist.
func initializeStore(ctx context.Context, cfg *config.Config) (*store.RedisStore, *vote.Service, error) {
	redisStore, err := store.New(ctx, store.Options{
		Addr:     cfg.Store.Addr(),
		Password: cfg.Store.Password,
	})
	if err != nil {
		return nil, nil, err
	}

	voteService, err := vote.NewService(ctx, redisStore, vote.Options{
		Title:   cfg.Vote.Title,
		Option1: cfg.Vote.Option1,
		Option2: cfg.Vote.Option2,
	})
	if err != nil {
		redisStore.Close()
		return nil, nil, err
	}

	return redisStore, voteService, nil
}

func run(ctx context.Context, log *slog.Logger, cfg config.ServerConfig, router http.Handler) error {
	read, write, idle := cfg.Durations()
	srv, err := httpserver.New(cfg.Address, router, httpserver.Timeouts{Read: read, Write: write, Idle: idle})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Listening", slog.String("addr", srv.Addr()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		return err
	}
}
