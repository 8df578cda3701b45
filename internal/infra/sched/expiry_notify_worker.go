package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vpn-account-ledger/internal/domain"
	red "vpn-account-ledger/internal/infra/redis"
	"vpn-account-ledger/internal/infra/metrics"
	"vpn-account-ledger/internal/usecase"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ExpiryNotifyWorker runs the expiration notification sweep on a cron schedule.
type ExpiryNotifyWorker struct {
	schedule string
	notifUC  usecase.NotificationUseCase
	locker   red.Locker
	lockTTL  time.Duration
	log      *zerolog.Logger

	running sync.Mutex // one sweep per process, with or without the redis lock
}

// NewExpiryNotifyWorker builds the worker. A nil locker runs sweeps without
// cross-process exclusion.
func NewExpiryNotifyWorker(schedule string, notifUC usecase.NotificationUseCase, locker red.Locker, lockTTL time.Duration, logger *zerolog.Logger) *ExpiryNotifyWorker {
	compLog := logger.With().Str("component", "ExpiryNotifyWorker").Logger()
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &ExpiryNotifyWorker{
		schedule: schedule,
		notifUC:  notifUC,
		locker:   locker,
		lockTTL:  lockTTL,
		log:      &compLog,
	}
}

// Run blocks until ctx is done. In-flight sweeps are awaited before returning.
func (w *ExpiryNotifyWorker) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{w.log})))
	if _, err := c.AddFunc(w.schedule, func() { w.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule %q: %w", w.schedule, err)
	}

	w.log.Info().Str("schedule", w.schedule).Msg("Starting expiry notify worker")
	c.Start()
	<-ctx.Done()

	w.log.Info().Msg("Stopping expiry notify worker")
	<-c.Stop().Done()
	return ctx.Err()
}

func (w *ExpiryNotifyWorker) tick(ctx context.Context) {
	sent, err := w.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrLockNotAcquired):
		w.log.Debug().Msg("sweep already running elsewhere")
	case err != nil:
		w.log.Error().Err(err).Msg("expiry notify sweep failed")
	case sent > 0:
		w.log.Info().Int("count", sent).Msg("expiry notifications sent")
	}
}

// RunOnce performs a single sweep under the sweep lock and returns the number
// of notices sent. domain.ErrLockNotAcquired means another sweep holds the lock.
func (w *ExpiryNotifyWorker) RunOnce(ctx context.Context) (int, error) {
	if !w.running.TryLock() {
		metrics.IncExpiryNotifyRun("skipped")
		return 0, domain.ErrLockNotAcquired
	}
	defer w.running.Unlock()

	if w.locker != nil {
		key := red.ExpireNotifyLockKey()
		token, err := w.locker.TryLock(ctx, key, w.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				metrics.IncExpiryNotifyRun("skipped")
			} else {
				metrics.IncExpiryNotifyRun("failed")
			}
			return 0, err
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
				w.log.Warn().Err(err).Msg("release sweep lock")
			}
		}()
	}

	start := time.Now()
	sent, err := w.notifUC.RunExpireNotify(ctx)
	metrics.ObserveExpiryNotifyDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.IncExpiryNotifyRun("failed")
		return sent, err
	}
	metrics.IncExpiryNotifyRun("ok")
	return sent, nil
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct {
	log *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
