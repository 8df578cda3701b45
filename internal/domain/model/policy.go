package model

import "time"

const (
	DefaultReferralBonus  = 14 * 24 * time.Hour
	DefaultNotifyWindow   = 48 * time.Hour
	DefaultNotifyCooldown = 24 * time.Hour
)

// LedgerPolicy carries the runtime-tunable values the ledger operations need.
type LedgerPolicy struct {
	TrialPeriod    time.Duration
	TrialPeriodMax int
	ReferralBonus  time.Duration
}

// CanHaveTrial is true when trial periods remain and the account never paid.
func (p LedgerPolicy) CanHaveTrial(a *Account, confirmedPayments int) bool {
	return confirmedPayments == 0 && a.RemainingTrialPeriods(p.TrialPeriodMax) > 0
}

// NotifyPolicy configures the expiration notification sweep.
type NotifyPolicy struct {
	Window   time.Duration
	Cooldown time.Duration
}
