package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian-access/internal/access"
	"github.com/meridian-pos/meridian-access/internal/app"
	"github.com/meridian-pos/meridian-access/internal/identity"
	"github.com/meridian-pos/meridian-access/internal/media"
	"github.com/meridian-pos/meridian-access/internal/observability"
	"github.com/meridian-pos/meridian-access/internal/shared"
	"github.com/meridian-pos/meridian-access/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	verifier := identity.NewVerifier(cfg.TokenSecret)
	claimsStore := identity.NewClaimsStore(redisClient)
	recordStore := access.NewRecordStore(dbpool)
	auditLogger := shared.NewAuditLogger(dbpool)

	enqueuer := jobs.NewEnqueuer(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := enqueuer.Close(); err != nil {
			logger.Warn("enqueuer close", slog.Any("error", err))
		}
	}()

	accessService := access.NewService(logger, claimsStore, recordStore, enqueuer, auditLogger, metrics)
	accessHandler := access.NewHandler(logger, accessService, verifier, cfg.BootstrapSecret)

	signer, err := media.NewS3Signer(ctx, cfg.MediaBucket, cfg.MediaRegion, cfg.MediaURLTTL)
	if err != nil {
		logger.Error("init media signer", slog.Any("error", err))
		os.Exit(1)
	}
	mediaHandler := media.NewHandler(logger, signer, verifier)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		AccessHandler: accessHandler,
		MediaHandler:  mediaHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
