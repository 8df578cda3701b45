package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"vpn-account-ledger/internal/application"
	"vpn-account-ledger/internal/config"
	"vpn-account-ledger/internal/infra/api"
	"vpn-account-ledger/internal/infra/logging"
	"vpn-account-ledger/internal/infra/metrics"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted e-mails)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	// ---- HTTP API ----
	var limiter api.Limiter
	if app.Limiter != nil {
		limiter = app.Limiter
	}
	srv := api.NewServer(api.Services{
		Accounts:      app.Accounts,
		GiftCodes:     app.GiftCodes,
		Payments:      app.Payments,
		Subscriptions: app.Subscriptions,
		Sweeper:       app.Worker,
	}, api.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL), limiter, cfg, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	// Background loops use the pool and redis: app.Close must wait for them.
	var bg sync.WaitGroup

	// ---- Expiration notification sweep ----
	bg.Add(1)
	go func() {
		defer bg.Done()
		if err := app.Worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("expiry notify worker stopped")
		}
	}()

	// ---- Gauges ----
	bg.Add(1)
	go func() {
		defer bg.Done()
		observe(ctx, app)
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	bg.Wait()
	logger.Info().Msg("background workers stopped")
}

// observe refreshes pool and subscription gauges until ctx ends.
func observe(ctx context.Context, app *application.App) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		metrics.ObservePool(app.Pool.Stat())
		if counts, err := app.Subscriptions.CountByStatus(ctx); err == nil {
			metrics.SetSubscriptionsTotal(counts)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
