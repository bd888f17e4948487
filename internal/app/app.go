// Package app wires configuration into the ledger services.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/api"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/metrics"
	"github.com/cleared-dev/ledger/internal/period"
	"github.com/cleared-dev/ledger/internal/recurring"
	"github.com/cleared-dev/ledger/internal/scheduler"
	"github.com/cleared-dev/ledger/internal/store"
)

// App holds the services built from one Config.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	Registry  *prometheus.Registry
	Authz     auth.Authorizer
	Accounts  *accounts.Registry
	Periods   *period.Service
	Journal   *journal.Engine
	Ledger    *ledger.Engine
	Recurring *recurring.Engine
	Scheduler *scheduler.Scheduler

	redis redis.UniversalClient
}

// New opens and migrates the database and builds every service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = store.Close(db)
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	a := &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Registry: reg,
		Authz:    auth.CompanyScoped{},
	}
	tol := cfg.Ledger.Tolerance()

	a.Accounts = accounts.NewRegistry(db, a.Authz)
	a.Periods = period.NewService(db, a.Authz, log)
	a.Journal = journal.NewEngine(db, a.Authz,
		journal.WithLogger(log),
		journal.WithMetrics(m),
		journal.WithPrefix(cfg.Ledger.EntryPrefix),
		journal.WithTolerance(tol),
		journal.WithRetries(cfg.Ledger.ConflictRetries),
	)
	a.Ledger = ledger.NewEngine(db, log)
	a.Recurring = recurring.NewEngine(db, a.Journal, a.Authz,
		recurring.WithLogger(log),
		recurring.WithMetrics(m),
		recurring.WithIdentity(auth.System(cfg.Scheduler.Identity)),
		recurring.WithTolerance(tol),
		recurring.WithRetries(cfg.Ledger.ConflictRetries),
	)

	var locker scheduler.Locker = scheduler.NewLocalLocker()
	if addr := cfg.Scheduler.Redis.Addr; addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Scheduler.Redis.Password,
			DB:       cfg.Scheduler.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("connecting to redis %s: %w", addr, err)
		}
		locker = scheduler.NewRedisLocker(a.redis)
	}
	a.Scheduler = scheduler.New(a.Recurring, locker, cfg.Scheduler, log)

	return a, nil
}

// Handler returns the API handler over the app's services.
func (a *App) Handler() *api.Handler {
	return api.NewHandler(a.Journal, a.Ledger, a.Recurring, a.Authz)
}

// Server returns the HTTP server configured by the app's Config.
func (a *App) Server() *api.Server {
	return api.NewServer(a.Log, a.Config.Server.Port, a.Config.Server.Mode, a.Handler(), a.Registry)
}

// Close releases the database and the Redis client.
func (a *App) Close() error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if err := store.Close(a.DB); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
