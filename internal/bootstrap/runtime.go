// Package bootstrap wires the process-wide runtime shared by the commands:
// logger, tracing, database, Redis and the development root superuser.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"blogsite/internal/cache"
	"blogsite/internal/config"
	"blogsite/internal/database"
	"blogsite/internal/media"
	"blogsite/internal/models"
	"blogsite/internal/observability"
	"blogsite/internal/repository"
	"blogsite/internal/service"
	"blogsite/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// ServiceName identifies the process in traces and metrics.
const ServiceName = "blogsite"

// Options control runtime initialization behavior.
type Options struct {
	// FixturesPath loads a YAML fixture file after the database is ready.
	FixturesPath string
	// SkipTracing leaves the global tracer untouched. Short-lived commands set it.
	SkipTracing bool
}

// Runtime holds the initialized process dependencies.
type Runtime struct {
	Config *config.Config
	Logger *slog.Logger
	DB     *gorm.DB
	// Redis is nil when the server is unreachable; the app then runs without a cache.
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to DB and Redis, initializes tracing and ensures the
// development root superuser.
func InitRuntime(cfg *config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = observability.NewLogger(cfg.Env)
	}

	rt := &Runtime{
		Config:          cfg,
		Logger:          logger,
		shutdownTracing: func(context.Context) error { return nil },
	}

	if !opts.SkipTracing {
		shutdown, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:    ServiceName,
			ServiceVersion: "1.0.0",
			Environment:    cfg.Env,
			Enabled:        cfg.TracingEnabled,
			Exporter:       cfg.TracingExporter,
			OTLPEndpoint:   cfg.OTLPEndpoint,
			SamplerRatio:   1.0,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	rt.Redis = cache.InitRedis(cfg.RedisURL, logger)

	ctx := context.Background()
	if err := ensureDevRootAdmin(ctx, cfg, rt.Users(), logger); err != nil {
		return nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.FixturesPath != "" {
		fixtures, err := seed.LoadFixtures(opts.FixturesPath)
		if err != nil {
			return nil, err
		}
		if _, err := seed.ApplyFixtures(ctx, db, fixtures); err != nil {
			return nil, fmt.Errorf("failed to apply fixtures: %w", err)
		}
	}

	return rt, nil
}

// Users returns an account service bound to the runtime database.
func (r *Runtime) Users() *service.UserService {
	avatarMaxPx := r.Config.AvatarMaxPx
	if avatarMaxPx <= 0 {
		avatarMaxPx = media.DefaultAvatarMaxPx
	}
	return service.NewUserService(
		repository.NewUserRepository(r.DB),
		media.NewStore(r.Config.MediaRoot),
		observability.NewAuditLogger(r.Logger),
		avatarMaxPx,
	)
}

// ShutdownTracing flushes pending spans.
func (r *Runtime) ShutdownTracing(ctx context.Context) error {
	return r.shutdownTracing(ctx)
}

// Close flushes tracing and releases the database and Redis connections.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := r.shutdownTracing(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.DB != nil {
		if sqlDB, err := r.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
		cache.SetClient(nil)
	}
	return errors.Join(errs...)
}

func ensureDevRootAdmin(ctx context.Context, cfg *config.Config, users *service.UserService, logger *slog.Logger) error {
	if cfg == nil || users == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@blog.local"
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	_, err := users.SetSuperuser(ctx, username, true)
	var appErr *models.AppError
	switch {
	case err == nil:
	case errors.As(err, &appErr) && appErr.Code == models.CodeNotFound:
		if _, err := users.CreateSuperuser(ctx, username, email, cfg.DevRootPassword); err != nil {
			return err
		}
	default:
		return err
	}

	logger.Info("development root admin bootstrap ensured", slog.String("username", username))
	return nil
}
