// Package app wires configuration into stores and services for both binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	httpapi "vehicle-risk-backend/internal/api/http"
	"vehicle-risk-backend/internal/config"
	"vehicle-risk-backend/internal/fxrate"
	"vehicle-risk-backend/internal/jobs"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/repository"
	"vehicle-risk-backend/internal/repository/dynamo"
	"vehicle-risk-backend/internal/repository/memory"
	"vehicle-risk-backend/internal/repository/postgres"
	"vehicle-risk-backend/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
)

// Repositories groups the data store used by the services.
type Repositories struct {
	BonusMalus    repository.BonusMalusRepository
	Metrics       repository.BehavioralMetricsRepository
	Profiles      repository.DriverProfileRepository
	Wallets       repository.WalletRepository
	Snapshots     repository.RiskSnapshotRepository
	FxSnapshots   repository.FxSnapshotRepository
	Notifications repository.NotificationRepository
	Contacts      repository.UserContactRepository
}

// App holds the live dependencies of a running process.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client
	Repos  Repositories

	BonusMalus    service.BonusMalusService
	Risk          service.RiskCalculatorService
	Snapshots     service.RiskSnapshotService
	Checkout      service.CheckoutService
	Fx            service.FxService
	Notifications service.NotificationService
}

// New connects every configured backend and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openStores(ctx); err != nil {
		a.Close()
		return nil, err
	}

	source, err := a.rateSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var email service.EmailService
	if cfg.SendGrid.APIKey != "" {
		email = service.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	} else {
		logger.Info("SendGrid not configured, notification emails disabled")
	}

	a.Notifications = service.NewNotificationService(a.Repos.Notifications, a.Repos.Contacts, email)
	a.BonusMalus = service.NewBonusMalusService(a.Repos.BonusMalus, a.Repos.Metrics, a.Notifications, service.BonusMalusOptions{
		Interval:  cfg.BonusMalusInterval(),
		BatchSize: cfg.BonusMalus.BatchSize,
	})
	a.Risk = service.NewRiskCalculatorService(a.Repos.Profiles, nil)
	a.Snapshots = service.NewRiskSnapshotService(a.Risk, a.Repos.Snapshots, cfg.SnapshotRules(), nil)
	a.Checkout = service.NewCheckoutService(a.Snapshots, a.BonusMalus, a.Repos.Wallets)
	a.Fx = service.NewFxService(source, a.Repos.FxSnapshots, service.FxOptions{
		Validity:           cfg.FxValidity(),
		VariationThreshold: cfg.Fx.VariationThreshold,
	})

	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	cfg := a.Config

	switch cfg.Storage.Type {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		profiles := memory.NewProfileStore()
		a.Repos = Repositories{
			BonusMalus:    memory.NewBonusMalusStore(),
			Metrics:       profiles,
			Profiles:      profiles,
			Wallets:       profiles,
			Snapshots:     memory.NewRiskSnapshotStore(),
			FxSnapshots:   memory.NewFxSnapshotStore(),
			Notifications: memory.NewNotificationStore(),
			Contacts:      profiles,
		}
	default:
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.DB = db

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")

		store := postgres.NewStore(db)
		a.Repos = Repositories{
			BonusMalus:    store.BonusMalusRepository,
			Metrics:       store.BehavioralMetricsRepository,
			Profiles:      store.DriverProfileRepository,
			Wallets:       store.WalletRepository,
			Snapshots:     store.RiskSnapshotRepository,
			FxSnapshots:   store.FxSnapshotRepository,
			Notifications: store.NotificationRepository,
			Contacts:      store.UserContactRepository,
		}
	}

	if cfg.Storage.RiskSnapshotBackend == "dynamodb" {
		client, err := dynamo.NewClient(ctx, dynamo.Options{
			Region:          cfg.DynamoDB.Region,
			Endpoint:        cfg.DynamoDB.Endpoint,
			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to create dynamodb client: %w", err)
		}
		a.Repos.Snapshots = dynamo.NewRiskSnapshotStore(client, cfg.DynamoDB.Table)
		logger.Info("Risk snapshots stored in DynamoDB", "table", cfg.DynamoDB.Table, "region", cfg.DynamoDB.Region)
	}

	return nil
}

// rateSource builds the HTTP rate source behind the Redis cache, or the static
// table when no source URL is configured.
func (a *App) rateSource(ctx context.Context) (fxrate.Source, error) {
	cfg := a.Config

	var source fxrate.Source
	if cfg.Fx.SourceURL == "" {
		logger.Warn("No FX source configured, using static rates", "pairs", len(cfg.Fx.StaticRates))
		return fxrate.StaticSource{Rates: cfg.Fx.StaticRates}, nil
	}

	client := &fasthttp.Client{
		Name:                "vehicle-risk-backend",
		MaxConnsPerHost:     32,
		ReadTimeout:         cfg.FxTimeout(),
		WriteTimeout:        cfg.FxTimeout(),
		MaxIdleConnDuration: time.Minute,
	}
	source = fxrate.NewHTTPSource(client, cfg.Fx.SourceURL, cfg.FxTimeout())

	if cfg.Redis.Addr == "" {
		return source, nil
	}

	a.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := a.Redis.Ping(pingCtx).Err(); err != nil {
		// The cache is optional; lookups fall through to the source on errors.
		logger.Warn("Redis unreachable, FX cache degraded", "addr", cfg.Redis.Addr, "error", err)
	}

	return fxrate.NewCachedSource(source, fxrate.NewRedisCache(a.Redis), cfg.FxCacheTTL()), nil
}

// HTTPServices exposes the services the HTTP API needs.
func (a *App) HTTPServices() httpapi.Services {
	return httpapi.Services{
		BonusMalus:    a.BonusMalus,
		Risk:          a.Risk,
		Snapshots:     a.Snapshots,
		Checkout:      a.Checkout,
		Fx:            a.Fx,
		Notifications: a.Notifications,
	}
}

func (a *App) JobServices() *jobs.Services {
	return &jobs.Services{BonusMalus: a.BonusMalus, Fx: a.Fx}
}

// StartDBStats reports pool statistics until ctx is done. No-op without a database.
func (a *App) StartDBStats(ctx context.Context) {
	if a.DB == nil {
		return
	}
	go metrics.StartDBStatsCollector(ctx, a.DB, 15*time.Second)
}

// Close releases connections. Safe to call on a partially built App.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("Failed to close redis", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logger.Warn("Failed to close database", "error", err)
		}
	}
}
