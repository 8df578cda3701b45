package application

import (
	"context"
	"fmt"

	"vpn-account-ledger/internal/config"
	"vpn-account-ledger/internal/domain/ports/adapter"
	"vpn-account-ledger/internal/domain/ports/repository"
	pg "vpn-account-ledger/internal/infra/db/postgres"
	"vpn-account-ledger/internal/infra/mail"
	red "vpn-account-ledger/internal/infra/redis"
	"vpn-account-ledger/internal/infra/sched"
	"vpn-account-ledger/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// App holds the wired ledger services shared by every binary.
type App struct {
	Pool  *pgxpool.Pool
	Redis red.RedisClient // nil when redis.url is empty

	Ledger        *usecase.Ledger
	Accounts      usecase.AccountUseCase
	GiftCodes     usecase.GiftCodeUseCase
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Notifications usecase.NotificationUseCase

	Mailer  adapter.Mailer
	Limiter *red.RateLimiter // nil without Redis
	Worker  *sched.ExpiryNotifyWorker
}

// New connects Postgres (and Redis when configured) and wires the use cases.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a := &App{Pool: pool}

	var accounts repository.AccountRepository = pg.NewAccountRepo(pool)
	var locker red.Locker
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = rc
		accounts = pg.NewAccountRepoCacheDecorator(accounts, rc, cfg.Redis.TTL, logger)
		locker = red.NewLocker(rc)
		a.Limiter = red.NewRateLimiter(rc)
	} else {
		logger.Warn().Msg("redis.url not set: no account cache, sweep lock or redemption rate limit")
	}

	subs := pg.NewSubscriptionRepo(pool)
	payments := pg.NewPaymentRepo(pool)
	tm := pg.NewTxManager(pool)

	a.Ledger = usecase.NewLedger(accounts, subs, payments, cfg.LedgerPolicy(), logger)
	a.Accounts = usecase.NewAccountUseCase(accounts, a.Ledger, tm, logger)
	a.GiftCodes = usecase.NewGiftCodeUseCase(pg.NewGiftCodeRepo(pool), pg.NewGiftCodeRedemptionRepo(pool), accounts, a.Ledger, tm, logger)
	a.Payments = usecase.NewPaymentUseCase(payments, accounts, subs, a.Ledger, tm, logger)
	a.Subscriptions = usecase.NewSubscriptionUseCase(subs, accounts, tm, logger)

	a.Mailer = NewMailer(cfg, logger)
	a.Notifications = usecase.NewNotificationUseCase(accounts, subs, a.Mailer, cfg.NotifyPolicy(), a.Ledger, logger)
	a.Worker = sched.NewExpiryNotifyWorker(cfg.Notify.Cron, a.Notifications, locker, cfg.Notify.LockTTL, logger)
	return a, nil
}

// NewMailer picks SMTP delivery when a host is configured, else logs mails.
func NewMailer(cfg *config.Config, logger *zerolog.Logger) adapter.Mailer {
	if cfg.SMTP.Enabled() {
		return mail.NewSMTPMailer(mail.NewSMTPTransport(cfg.SMTP, logger), logger)
	}
	logger.Warn().Msg("smtp.host not set: e-mails are logged, not sent")
	return mail.NewLogMailer(logger, cfg.Runtime.Dev)
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}
