// Command expire-notify runs a single expiration notification sweep, for use
// from cron or a one-off job.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"vpn-account-ledger/internal/application"
	"vpn-account-ledger/internal/config"
	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/infra/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "expire-notify:", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string) error {
	fs := flag.NewFlagSet("expire-notify", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "path to YAML config file")
	devMode := fs.Bool("dev", false, "enable developer mode")
	timeout := fs.Duration("timeout", 10*time.Minute, "abort the sweep after this long")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *timeout <= 0 {
		return errors.New("timeout must be positive")
	}

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer app.Close()

	sent, err := app.Worker.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrLockNotAcquired):
		logger.Info().Msg("another sweep is running; nothing to do")
	case err != nil:
		logger.Error().Err(err).Int("sent", sent).Msg("sweep failed")
		return err
	default:
		logger.Info().Int("sent", sent).Msg("sweep finished")
	}
	return nil
}
