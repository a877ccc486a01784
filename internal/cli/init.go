// Package cli provides the startup wiring shared by cmd/organify,
// cmd/organify-worker and cmd/organify-cli.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"organify/internal/amqp"
	"organify/internal/cache"
	"organify/internal/config"
	applog "organify/internal/log"
	"organify/internal/services"
	"organify/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// App holds the shared resources and services of one process.
type App struct {
	Repo   *storage.SQLiteRepository
	Cache  cache.Store
	Events *amqp.Client

	Ledger     *services.LedgerService
	Debts      *services.DebtService
	Categories *services.CategoryService
	Planned    *services.PlannedService
	Accounts   *services.AccountService
	Exports    *services.ExportService
}

// NewApp opens the database, the cache and, when AMQP_URL is set, the event
// publisher, then builds the services on top of them.
func NewApp(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*App, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	logger.Info("SQLite repository ready", "path", cfg.SQLiteDBPath)

	store, err := cache.New(ctx, cache.Options{Backend: cfg.CacheBackend, RedisURL: cfg.RedisURL, TTL: cfg.CacheTTL})
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}
	logger.Info("Cache ready", "backend", cfg.CacheBackend, "ttl", cfg.CacheTTL)

	app := &App{Repo: repo, Cache: store}

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, ledger events disabled", "error", err)
		} else {
			app.Events = client
			events = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	app.Ledger = services.NewLedgerService(repo, store, events)
	app.Debts = services.NewDebtService(repo)
	app.Categories = services.NewCategoryService(repo)
	app.Planned = services.NewPlannedService(repo)
	app.Accounts = services.NewAccountService(repo)
	app.Exports = services.NewExportService(app.Ledger, app.Accounts)
	return app, nil
}

// Close releases every resource opened by NewApp.
func (a *App) Close() error {
	if a.Events != nil {
		_ = a.Events.Close()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	return a.Repo.Close()
}
