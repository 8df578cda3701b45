// Command giftcodes generates a batch of gift codes and prints them, one per line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"vpn-account-ledger/internal/application"
	"vpn-account-ledger/internal/config"
	"vpn-account-ledger/internal/infra/logging"
)

const maxDays = 3650

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "giftcodes:", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup always happens.
func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("giftcodes", flag.ContinueOnError)
	cfgPath := fs.String("config", "config.yaml", "path to YAML config file")
	count := fs.Int("count", 1, "number of codes to generate")
	days := fs.Int("days", 30, "paid time granted per redemption, in days")
	singleUse := fs.Bool("single-use", false, "each account may apply the code once")
	freeOnly := fs.Bool("free-only", false, "only accounts without paid time may apply the code")
	comment := fs.String("comment", "", "free-form note stored with the codes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *count <= 0 || *days <= 0 || *days > maxDays {
		return fmt.Errorf("count must be positive and days within 1..%d", maxDays)
	}

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	app, err := application.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer app.Close()

	d := time.Duration(*days) * 24 * time.Hour
	for i := 0; i < *count; i++ {
		gc, err := app.GiftCodes.Create(ctx, d, *singleUse, *freeOnly, *comment)
		if err != nil {
			return errors.Join(fmt.Errorf("%d of %d codes created", i, *count), err)
		}
		fmt.Fprintln(out, gc.Code)
	}
	return nil
}
