package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/adapter"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/infra/logging"
	"vpn-account-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const expiryNoticeSubject = "Your VPN account is about to expire"

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	// RunExpireNotify mails every account whose paid time runs out inside the
	// notify window and returns how many mails were sent.
	RunExpireNotify(ctx context.Context) (int, error)
}

type notificationUC struct {
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	mailer   adapter.Mailer
	policy   model.NotifyPolicy
	now      func() time.Time
	log      *zerolog.Logger
}

func NewNotificationUseCase(
	accounts repository.AccountRepository,
	subs repository.SubscriptionRepository,
	mailer adapter.Mailer,
	policy model.NotifyPolicy,
	ledger *Ledger,
	logger *zerolog.Logger,
) *notificationUC {
	if policy.Window <= 0 {
		policy.Window = model.DefaultNotifyWindow
	}
	if policy.Cooldown <= 0 {
		policy.Cooldown = model.DefaultNotifyCooldown
	}
	now := time.Now
	if ledger != nil {
		now = ledger.Now
	}
	return &notificationUC{
		accounts: accounts,
		subs:     subs,
		mailer:   mailer,
		policy:   policy,
		now:      now,
		log:      logger,
	}
}

func (n *notificationUC) RunExpireNotify(ctx context.Context) (int, error) {
	defer logging.TraceDuration(n.log, "NotificationUC.RunExpireNotify")()

	now := n.now()
	candidates, err := n.accounts.FindExpiring(ctx, repository.NoTX, now, now.Add(n.policy.Window), now.Add(-n.policy.Cooldown), 0)
	if err != nil {
		return 0, fmt.Errorf("find expiring accounts: %w", err)
	}

	sent := 0
	for _, acc := range candidates {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := n.notify(ctx, acc, now)
		if err != nil {
			return sent, err
		}
		if ok {
			sent++
		}
	}
	n.log.Info().Int("candidates", len(candidates)).Int("sent", sent).Msg("expire notify sweep finished")
	return sent, nil
}

// notify returns false without error when the account is skipped or the
// mail could not be delivered.
func (n *notificationUC) notify(ctx context.Context, acc *model.Account, now time.Time) (bool, error) {
	log := n.log.With().Str("account_id", acc.ID).Logger()

	if !acc.HasTimeLeft(now) || !acc.NoticeDue(now, n.policy.Cooldown) {
		return false, nil
	}
	_, err := n.subs.FindActiveByAccount(ctx, repository.NoTX, acc.ID)
	switch {
	case err == nil:
		metrics.IncExpiryNotification("skipped_subscription")
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("find active subscription: %w", err)
	}
	if acc.Email == "" {
		metrics.IncExpiryNotification("skipped_no_email")
		log.Debug().Msg("no e-mail address, skipping expiry notice")
		return false, nil
	}

	msg := adapter.Email{
		To:      acc.Email,
		Subject: expiryNoticeSubject,
		Body:    ExpiryNoticeBody(acc.Username, acc.TimeLeft(now)),
	}
	if err := n.mailer.Send(ctx, msg); err != nil {
		metrics.IncExpiryNotification("failed")
		log.Error().Err(err).Msg("expiry notice not delivered")
		return false, nil
	}
	// The mail is out: record it even if the sweep is being cancelled.
	if err := n.accounts.SetLastExpiryNotice(context.WithoutCancel(ctx), repository.NoTX, acc.ID, now); err != nil {
		return false, fmt.Errorf("record expiry notice: %w", err)
	}
	metrics.IncExpiryNotification("sent")
	log.Debug().Str("to", logging.Redact(acc.Email, false)).Msg("expiry notice sent")
	return true, nil
}

// ExpiryNoticeBody renders the plain-text expiry mail.
func ExpiryNoticeBody(username string, left time.Duration) string {
	return fmt.Sprintf("Hi %s,\n\n"+
		"Your VPN account will expire in %s.\n"+
		"Renew it from your account page to keep your connection running.\n",
		username, FormatRemaining(left))
}

// FormatRemaining renders whole days when at least a day is left, otherwise
// hours and minutes. Partial units are truncated.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d >= 24*time.Hour {
		return plural(int(d/(24*time.Hour)), "day")
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return plural(h, "hour") + ", " + plural(m, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
