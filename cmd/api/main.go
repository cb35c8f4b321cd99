// Command api serves the Notekeep HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/notekeep/notekeep/internal/auth"
	"github.com/notekeep/notekeep/internal/cache"
	"github.com/notekeep/notekeep/internal/config"
	"github.com/notekeep/notekeep/internal/handler"
	"github.com/notekeep/notekeep/internal/metrics"
	"github.com/notekeep/notekeep/internal/repository"
	"github.com/notekeep/notekeep/internal/server"
	"github.com/notekeep/notekeep/internal/service"
	"github.com/notekeep/notekeep/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres %s: %s", redactURL(cfg.DatabaseURL), sanitizeError(err, cfg.DatabaseURL))
	}
	// Owned by the server's shutdown hooks once registered below.
	closeRepo := true
	defer func() {
		if closeRepo {
			repo.Close()
		}
	}()

	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %s", sanitizeError(err, cfg.DatabaseURL))
	}
	logger.Info("database ready")

	var redis *cache.Cache
	if cfg.RedisURL != "" {
		redis, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis %s: %s", redactURL(cfg.RedisURL), sanitizeError(err, cfg.RedisURL))
		}
		logger.Info("redis ready")
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	backend, uploadsDir, err := newStorageBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s attachment storage: %w", cfg.StorageBackend, err)
	}
	logger.Info("attachment storage ready", "backend", cfg.StorageBackend)

	recorder := metrics.NewPrometheus()
	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	attachments := storage.NewAttachments(backend, cfg.MaxUploadSize)

	deps := routerDeps{
		cfg:        cfg,
		logger:     logger,
		verifier:   tokens,
		recorder:   recorder,
		metrics:    recorder.Handler(),
		health:     handler.NewHealthHandler(repo, healthChecker(redis), attachments),
		notes:      handler.NewNoteHandler(service.NewNoteService(repo, attachments, recorder, logger), logger),
		accounts:   handler.NewAuthHandler(service.NewAuthService(repo, tokens, recorder), logger),
		uploadsDir: uploadsDir,
	}
	if redis != nil {
		deps.limiter = redis
	}

	srv := server.New(newRouter(deps), server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	closeRepo = false
	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	if redis != nil {
		srv.OnShutdown("redis", func(context.Context) error { return redis.Close() })
	}

	logger.Info("starting", "port", cfg.AppPort, "base_url", cfg.BaseURL, "env", cfg.AppEnv)
	return srv.Run(ctx)
}

// newStorageBackend selects the attachment backend. uploadsDir is the
// directory this process serves under the upload prefix, or empty when
// files live elsewhere.
func newStorageBackend(ctx context.Context, cfg *config.Config) (storage.Backend, string, error) {
	if cfg.StorageBackend == config.StorageS3 {
		s3, err := storage.NewS3Backend(ctx, cfg.S3)
		if err != nil {
			return nil, "", err
		}
		return s3, "", nil
	}

	local, err := storage.NewLocalBackend(cfg.UploadDir, cfg.UploadURLPrefix)
	if err != nil {
		return nil, "", err
	}
	return local, local.Dir(), nil
}

// healthChecker keeps a nil *cache.Cache from becoming a non-nil interface.
func healthChecker(c *cache.Cache) handler.HealthChecker {
	if c == nil {
		return nil
	}
	return c
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "notekeep")
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel accepts slog level names in any case; anything else is info.
func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
