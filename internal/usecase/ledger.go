package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Paid-time sources, used as metric labels and in logs.
const (
	SourcePayment  = "payment"
	SourceTrial    = "trial"
	SourceGiftCode = "gift_code"
	SourceReferral = "referral"
	SourceManual   = "manual"
)

// Ledger applies the expiration rules to accounts. It never opens a
// transaction itself: every method runs inside the tx handed in by the caller.
type Ledger struct {
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	policy   model.LedgerPolicy
	now      func() time.Time
	log      *zerolog.Logger
}

type LedgerOption func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLedger(
	accounts repository.AccountRepository,
	subs repository.SubscriptionRepository,
	payments repository.PaymentRepository,
	policy model.LedgerPolicy,
	logger *zerolog.Logger,
	opts ...LedgerOption,
) *Ledger {
	if policy.ReferralBonus <= 0 {
		policy.ReferralBonus = model.DefaultReferralBonus
	}
	l := &Ledger{
		accounts: accounts,
		subs:     subs,
		payments: payments,
		policy:   policy,
		now:      time.Now,
		log:      logger,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func (l *Ledger) Now() time.Time { return l.now() }

func (l *Ledger) Policy() model.LedgerPolicy { return l.policy }

// AddPaidTime extends acc by d and persists it.
func (l *Ledger) AddPaidTime(ctx context.Context, tx repository.Tx, acc *model.Account, d time.Duration, source string) error {
	if acc.IsZero() || d <= 0 {
		return domain.ErrInvalidArgument
	}
	acc.AddPaidTime(l.now(), d)
	if err := l.accounts.Save(ctx, tx, acc); err != nil {
		return fmt.Errorf("save account %s: %w", acc.ID, err)
	}
	metrics.AddPaidTime(source, d.Seconds())
	l.log.Debug().
		Str("account_id", acc.ID).
		Str("source", source).
		Dur("duration", d).
		Time("expiration", *acc.Expiration).
		Msg("paid time added")
	return nil
}

// IsPaid is true while the account has time left or an active subscription.
func (l *Ledger) IsPaid(ctx context.Context, tx repository.Tx, acc *model.Account) (bool, error) {
	if acc.HasTimeLeft(l.now()) {
		return true, nil
	}
	sub, err := l.activeSubscription(ctx, tx, acc.ID)
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

func (l *Ledger) activeSubscription(ctx context.Context, tx repository.Tx, accountID string) (*model.Subscription, error) {
	sub, err := l.subs.FindActiveByAccount(ctx, tx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	return sub, nil
}

func (l *Ledger) CanHaveTrial(ctx context.Context, tx repository.Tx, acc *model.Account) (bool, error) {
	if acc.RemainingTrialPeriods(l.policy.TrialPeriodMax) == 0 {
		return false, nil
	}
	n, err := l.payments.CountConfirmedByAccount(ctx, tx, acc.ID)
	if err != nil {
		return false, fmt.Errorf("count confirmed payments: %w", err)
	}
	return l.policy.CanHaveTrial(acc, n), nil
}

// GiveTrialPeriod grants one trial period. Ineligible accounts get ErrTrialUnavailable.
func (l *Ledger) GiveTrialPeriod(ctx context.Context, tx repository.Tx, acc *model.Account) error {
	ok, err := l.CanHaveTrial(ctx, tx, acc)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrTrialUnavailable
	}
	acc.TrialPeriodsGiven++
	if err := l.AddPaidTime(ctx, tx, acc, l.policy.TrialPeriod, SourceTrial); err != nil {
		acc.TrialPeriodsGiven--
		return err
	}
	metrics.IncTrialGranted()
	return nil
}

// OnPaymentConfirmed pays out the referral bonus once per referred account.
// The referrer_used flag is set even when the referrer no longer exists.
func (l *Ledger) OnPaymentConfirmed(ctx context.Context, tx repository.Tx, acc *model.Account) error {
	if !acc.HasUnusedReferrer() {
		return nil
	}
	referrerID := *acc.ReferrerID
	acc.ReferrerUsed = true
	if err := l.accounts.Save(ctx, tx, acc); err != nil {
		return fmt.Errorf("mark referrer used: %w", err)
	}
	if referrerID == acc.ID {
		l.log.Warn().Str("account_id", acc.ID).Msg("self referral ignored")
		return nil
	}

	referrer, err := l.accounts.FindByID(ctx, tx, referrerID)
	if errors.Is(err, domain.ErrNotFound) {
		l.log.Warn().Str("account_id", acc.ID).Str("referrer_id", referrerID).Msg("referrer gone, bonus skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load referrer: %w", err)
	}
	if err := l.AddPaidTime(ctx, tx, referrer, l.policy.ReferralBonus, SourceReferral); err != nil {
		return err
	}
	metrics.IncReferralBonus()
	l.log.Info().Str("account_id", acc.ID).Str("referrer_id", referrerID).Msg("referral bonus granted")
	return nil
}

// Status derives the read-only view of acc.
func (l *Ledger) Status(ctx context.Context, tx repository.Tx, acc *model.Account) (*model.AccountStatus, error) {
	now := l.now()
	sub, err := l.activeSubscription(ctx, tx, acc.ID)
	if err != nil {
		return nil, err
	}
	canTrial, err := l.CanHaveTrial(ctx, tx, acc)
	if err != nil {
		return nil, err
	}
	return &model.AccountStatus{
		AccountID:             acc.ID,
		Expiration:            acc.Expiration,
		TimeLeft:              acc.TimeLeft(now),
		IsPaid:                acc.HasTimeLeft(now) || sub != nil,
		RemainingTrialPeriods: acc.RemainingTrialPeriods(l.policy.TrialPeriodMax),
		CanHaveTrial:          canTrial,
		ActiveSubscription:    sub,
	}, nil
}
