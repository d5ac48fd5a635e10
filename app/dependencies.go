package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/rbac-control-plane/config"
	"github.com/upb/rbac-control-plane/internal/observability"
	"github.com/upb/rbac-control-plane/middleware"
	"github.com/upb/rbac-control-plane/repositories"
	"github.com/upb/rbac-control-plane/repositories/memory"
	"github.com/upb/rbac-control-plane/repositories/postgres"
	"github.com/upb/rbac-control-plane/services/directory"
	"github.com/upb/rbac-control-plane/services/permission"
	"go.uber.org/zap"
)

const (
	cacheCleanupInterval   = time.Minute
	rateLimitSweepInterval = time.Minute
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// RepoFactory is nil for the memory backend
	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories

	// Permission engine
	Cache       *permission.MembershipCache
	Metrics     *observability.PrometheusMetrics
	Resolver    *permission.Resolver
	Permissions *permission.Service
	Directory   *directory.Service

	// HTTP middleware
	JWT                  *middleware.JWTValidator
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
	RateLimiter          *middleware.RateLimiter

	stopCh    chan struct{}
	closeOnce sync.Once
}

// NewDependencies opens the configured storage backend and wires up all
// application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	var (
		repos   *repositories.Repositories
		factory *postgres.RepositoryFactory
	)

	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		var err error
		factory, err = initDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		repos = factory.NewRepositories()
	case config.StorageMemory:
		logger.Warn("using in-memory storage, data is lost on restart")
		repos = memory.NewStore(logger).NewRepositories()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	deps := NewDependenciesWithRepositories(cfg, repos, logger)
	deps.RepoFactory = factory

	logger.Info("all dependencies initialized successfully",
		zap.String("storage", cfg.Storage.Backend))
	return deps, nil
}

// NewDependenciesWithRepositories wires the services over an existing set of
// repositories.
func NewDependenciesWithRepositories(cfg *config.Config, repos *repositories.Repositories, logger *zap.Logger) *Dependencies {
	d := &Dependencies{
		Config: cfg,
		Logger: logger,
		Repos:  repos,
		stopCh: make(chan struct{}),
	}

	d.initPermissions(cfg)
	d.initAuth(cfg)
	d.initRateLimit(cfg)
	return d
}

// initDatabase opens the PostgreSQL pool and optionally creates the schema
func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*postgres.RepositoryFactory, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository factory: %w", err)
	}

	if err := factory.GetDB().PingContext(ctx); err != nil {
		_ = factory.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if cfg.Storage.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))
	return factory, nil
}

func (d *Dependencies) initPermissions(cfg *config.Config) {
	d.Cache = permission.NewMembershipCache(cfg.Permissions.CacheSize, cfg.Permissions.CacheTTL)
	if d.Cache != nil {
		d.Cache.StartCleanupWorker(cacheCleanupInterval, d.stopCh)
		d.Logger.Info("membership cache enabled",
			zap.Duration("ttl", cfg.Permissions.CacheTTL),
			zap.Int("max_size", cfg.Permissions.CacheSize))
	}

	d.Metrics = observability.NewPrometheusMetrics()
	source := permission.NewRepositorySource(d.Repos.Permissions, d.Repos.Memberships, d.Cache)
	d.Resolver = permission.NewResolver(source, d.Metrics, d.Logger)
	d.Permissions = permission.NewService(d.Repos.Permissions, d.Repos.Memberships, d.Resolver, d.Cache, d.Logger)
	d.Directory = directory.NewService(d.Repos, d.Cache, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if !cfg.Auth.Enabled {
		d.Logger.Warn("authentication disabled, admin API is open")
		return
	}
	d.JWT = middleware.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.JWT, d.Logger)
	d.PermissionMiddleware = middleware.NewPermissionMiddleware(d.Permissions, d.Logger)
}

func (d *Dependencies) initRateLimit(cfg *config.Config) {
	if !cfg.RateLimit.Enabled {
		return
	}
	d.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, d.Logger)
	d.RateLimiter.StartSweeper(rateLimitSweepInterval, d.stopCh)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	d.closeOnce.Do(func() { close(d.stopCh) })

	var errs []error
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
