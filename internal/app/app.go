// Package app assembles the ledger service and its stores from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segyhp/pawn-ledger/internal/advisory"
	"github.com/segyhp/pawn-ledger/internal/config"
	"github.com/segyhp/pawn-ledger/internal/domain"
	"github.com/segyhp/pawn-ledger/internal/lifecycle"
	"github.com/segyhp/pawn-ledger/internal/repository"
	"github.com/segyhp/pawn-ledger/internal/repository/memory"
	"github.com/segyhp/pawn-ledger/internal/repository/redisstore"
	"github.com/segyhp/pawn-ledger/internal/repository/sqlstore"
	"github.com/segyhp/pawn-ledger/internal/service"
	"github.com/segyhp/pawn-ledger/pkg/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// App holds the wired ledger and the connections it owns.
type App struct {
	Ledger  *service.LedgerService
	DB      *sqlx.DB      // nil with the memory driver
	Redis   *redis.Client // nil when REDIS_HOST is empty
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// New opens the configured stores, builds the advisor and loads saved
// defaults.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{
		Metrics: metrics.NewCollector(),
		Logger:  logger,
	}

	var (
		contracts repository.ContractRepository
		customers repository.CustomerRepository
		prefs     repository.PreferenceRepository
	)

	switch cfg.Database.Driver {
	case config.DriverMemory:
		contracts = memory.NewContractRepository()
		customers = memory.NewCustomerRepository()
		logger.Warn("using in-memory storage, data is lost on restart")
	default:
		db, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN(), sqlstore.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := sqlstore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.DB = db
		contracts = sqlstore.NewContractRepository(db)
		customers = sqlstore.NewCustomerRepository(db)
	}

	if addr := cfg.Redis.Addr(); addr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		prefs = redisstore.NewPreferenceRepository(a.Redis)
	} else {
		prefs = memory.NewPreferenceRepository()
	}

	var advisor advisory.Advisor = advisory.Noop{}
	if cfg.Advisory.APIKey != "" {
		gemini, err := advisory.NewGemini(ctx, cfg.Advisory.APIKey, cfg.Advisory.Model, cfg.Advisory.Timeout, logger)
		if err != nil {
			logger.Warn("advisory disabled", slog.String("error", err.Error()))
		} else {
			advisor = gemini
		}
	}

	a.Ledger = service.NewLedgerService(service.Deps{
		Contracts:   contracts,
		Customers:   customers,
		Preferences: prefs,
		Manager:     lifecycle.NewManager(lifecycle.WithLocation(cfg.GetShopLocation())),
		Advisor:     advisor,
		Metrics:     a.Metrics,
		Logger:      logger,
		Defaults: domain.Defaults{
			InterestRate: cfg.GetDefaultInterestRate(),
			DurationDays: cfg.Business.DefaultDurationDays,
		},
	})

	if err := a.Ledger.LoadDefaults(ctx); err != nil {
		logger.Warn("using configured defaults", slog.String("error", err.Error()))
	}

	return a, nil
}

// Close releases the database and redis connections.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis", slog.String("error", err.Error()))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("failed to close database", slog.String("error", err.Error()))
		}
	}
}
