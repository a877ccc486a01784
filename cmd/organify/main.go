package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"organify/internal/auth"
	"organify/internal/cli"
	apphttp "organify/internal/http"
	applog "organify/internal/log"
	"organify/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:   cfg.Addr(),
		Tokens: auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL),
		Logger: logger,
		RateLimit: ratelimit.Config{
			PerSecond: cfg.RateLimitPerSecond,
			Burst:     cfg.RateLimitBurst,
		},
		Ready: app.Repo,
	}, apphttp.Services{
		Ledger:     app.Ledger,
		Debts:      app.Debts,
		Categories: app.Categories,
		Planned:    app.Planned,
		Accounts:   app.Accounts,
		Exports:    app.Exports,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting organify server", "addr", cfg.Addr(), "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
