// Package app assembles the stores, remote client, and reconciliation
// services shared by the HTTP server and the command line tool.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/ratelimit"

	"github.com/HammerMeetNail/blockshield/internal/bluesky"
	"github.com/HammerMeetNail/blockshield/internal/config"
	"github.com/HammerMeetNail/blockshield/internal/database"
	"github.com/HammerMeetNail/blockshield/internal/logging"
	"github.com/HammerMeetNail/blockshield/internal/reconcile"
	"github.com/HammerMeetNail/blockshield/internal/services"
)

var (
	connectPostgres = database.NewPostgresDB
	connectRedis    = database.NewRedisDB
	newMigrator     = database.NewMigrator
)

type App struct {
	Config   *config.Config
	Logger   *logging.Logger
	DB       *database.PostgresDB
	Redis    *database.RedisDB
	Registry *prometheus.Registry

	Bluesky  *bluesky.Client
	Catalog  *services.CatalogStore
	Accounts *services.AccountService
	Sessions *services.SessionService
	Blocks   *services.BlockService
	Syncs    *services.SyncService
	Exports  *services.ExportService
}

// Options controls which startup steps New performs.
type Options struct {
	Migrate bool
}

// New connects to PostgreSQL and Redis and wires the services on top.
func New(cfg *config.Config, logger *logging.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logging.Default
	}

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := connectPostgres(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if opts.Migrate {
		if err := Migrate(cfg, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
	redisDB, err := connectRedis(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	sealer, err := services.NewTokenSealer(cfg.Secrets.TokenSealKey)
	if err != nil {
		db.Close()
		_ = redisDB.Close()
		return nil, fmt.Errorf("creating token sealer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := db.RegisterPoolMetrics(registry); err != nil {
		logger.Warn("Could not register pool metrics", map[string]interface{}{"error": err.Error()})
	}
	if err := redisDB.RegisterPoolMetrics(registry); err != nil {
		logger.Warn("Could not register redis pool metrics", map[string]interface{}{"error": err.Error()})
	}
	metrics := reconcile.NewMetrics(registry)

	dbAdapter := services.NewPoolAdapter(db.Pool)
	cache := services.NewRedisAdapter(redisDB.Client)

	catalog := services.NewCatalogStore(dbAdapter)
	accounts := services.NewAccountService(dbAdapter, sealer)
	client := bluesky.NewClient(cfg.Bluesky, accounts)

	// One limiter paces every outbound block creation in this process.
	limiter := ratelimit.New(cfg.Sync.PushRate)

	executor := reconcile.NewExecutor(catalog, limiter, logger, metrics)
	engine := reconcile.NewEngine(catalog, executor, logger, metrics)
	propagator := reconcile.NewPropagator(catalog, accounts, client, reconcile.PropagatorOptions{
		Limiter:     limiter,
		Concurrency: cfg.Sync.FanoutConcurrency,
		Logger:      logger,
		Metrics:     metrics,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Redis:    redisDB,
		Registry: registry,
		Bluesky:  client,
		Catalog:  catalog,
		Accounts: accounts,
		Sessions: services.NewSessionService(cache, accounts),
		Blocks:   services.NewBlockService(catalog, client, propagator),
		Syncs:    services.NewSyncService(engine, client, accounts, services.NewSyncStateStore(cache)),
		Exports:  services.NewExportService(catalog),
	}, nil
}

// Migrate applies all pending schema migrations.
func Migrate(cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Running database migrations...")
	migrator, err := newMigrator(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return err
	}
	logger.Info("Migrations completed")
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
