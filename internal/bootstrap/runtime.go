// Package bootstrap wires the process level dependencies shared by the server and the CLI tools.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"photoshare/internal/cache"
	"photoshare/internal/config"
	"photoshare/internal/database"
	"photoshare/internal/middleware"
	"photoshare/internal/observability"
	"photoshare/internal/repository"
	"photoshare/internal/seed"
	"photoshare/internal/service"
	"photoshare/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations according to DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedCategories creates the default categories and Uncategorized.
	SeedCategories bool
	// SeedAdmin ensures SEED_ADMIN_EMAIL is an admin when SEED_ADMIN_PASSWORD is set.
	SeedAdmin bool
	// SkipBlobs leaves Blobs nil for tools that never touch images.
	SkipBlobs bool
	Tracing   bool
}

// Runtime holds initialized infrastructure.
type Runtime struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Blobs  storage.BlobStore
	Mailer service.Mailer

	shutdownTracing func(context.Context) error
}

// InitRuntime connects to the database, Redis and the blob store, then runs the requested seeding.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{
		Mailer:          service.NewMailer(cfg),
		shutdownTracing: func(context.Context) error { return nil },
	}

	if opts.Tracing {
		shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
			Environment:  cfg.Env,
			Enabled:      cfg.TracingEnabled,
			Exporter:     cfg.TracingExporter,
			OTLPEndpoint: cfg.OTLPEndpoint,
			SamplerRatio: cfg.TracingSampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		rt.shutdownTracing = shutdown
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	if err := observability.RegisterGormMetrics(db); err != nil {
		middleware.Logger.Warn("gorm metrics disabled", slog.String("error", err.Error()))
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("schema setup failed: %w", err)
		}
	}

	// Redis is optional: without it category lists are not cached and logout cannot revoke tokens.
	rt.Redis = cache.ConnectOptional(ctx, cfg.RedisURL)

	if !opts.SkipBlobs {
		blobs, err := storage.NewFromConfig(ctx, cfg)
		if err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("blob store init failed: %w", err)
		}
		rt.Blobs = blobs
	}

	if opts.SeedCategories {
		if err := rt.seedCategories(ctx); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	if opts.SeedAdmin {
		if err := rt.seedAdmin(ctx, cfg); err != nil {
			_ = rt.Close(ctx)
			return nil, err
		}
	}

	return rt, nil
}

// Categories builds a category service on the runtime's database and cache.
func (rt *Runtime) Categories() *service.CategoryService {
	return service.NewCategoryService(repository.NewCategoryRepository(rt.DB, rt.Redis))
}

// Users builds a user service on the runtime's database and blob store.
func (rt *Runtime) Users(cfg *config.Config) *service.UserService {
	return service.NewUserService(
		repository.NewUserRepository(rt.DB),
		repository.NewPhotoRepository(rt.DB),
		repository.NewCommentRepository(rt.DB),
		rt.Blobs,
		cfg.UploadMaxBytes(),
	)
}

// Reconciler builds the orphan reconciler. The runtime must have a blob store.
func (rt *Runtime) Reconciler() *service.Reconciler {
	return service.NewReconciler(
		repository.NewMaintenanceRepository(rt.DB),
		repository.NewPhotoRepository(rt.DB),
		rt.Categories(),
		rt.Blobs,
	)
}

func (rt *Runtime) seedCategories(ctx context.Context) error {
	created, err := rt.Categories().Seed(ctx, seed.DefaultCategories)
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if created > 0 {
		middleware.Logger.Info("Seeded categories", slog.Int("created", created))
	}
	return nil
}

func (rt *Runtime) seedAdmin(ctx context.Context, cfg *config.Config) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return nil
	}
	user, created, err := rt.Users(cfg).SeedAdmin(ctx, "Admin", cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}
	middleware.Logger.Info("Admin account ensured",
		slog.String("email", user.Email),
		slog.Bool("created", created))
	return nil
}

// Close releases every connection the runtime opened.
func (rt *Runtime) Close(ctx context.Context) error {
	if rt.Blobs != nil {
		if err := rt.Blobs.Close(ctx); err != nil {
			middleware.Logger.Error("error closing blob store", slog.String("error", err.Error()))
		}
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if err := database.Close(rt.DB); err != nil {
		middleware.Logger.Error("error closing database", slog.String("error", err.Error()))
	}
	return rt.shutdownTracing(ctx)
}

// ShutdownTracing flushes pending spans. Server.Shutdown closes the other connections.
func (rt *Runtime) ShutdownTracing(ctx context.Context) error {
	return rt.shutdownTracing(ctx)
}
