package model

import (
	"strings"
	"time"

	"vpn-account-ledger/internal/domain"

	"github.com/google/uuid"
)

// Account is a VPN user together with its paid-time ledger.
// A nil Expiration, or one in the past, means the account has no time left.
type Account struct {
	ID                string
	Username          string
	Email             string
	Expiration        *time.Time
	LastExpiryNotice  *time.Time
	ReferrerID        *string
	ReferrerUsed      bool
	TrialPeriodsGiven int
	CreatedAt         time.Time
}

func NewAccount(id, username, email string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Account{
		ID:        id,
		Username:  username,
		Email:     strings.TrimSpace(email),
		CreatedAt: time.Now(),
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// AddPaidTime extends the expiration by d. An unset or lapsed expiration
// restarts from now, so stale past values are never carried forward.
func (a *Account) AddPaidTime(now time.Time, d time.Duration) {
	base := now
	if a.Expiration != nil && a.Expiration.After(now) {
		base = *a.Expiration
	}
	exp := base.Add(d)
	a.Expiration = &exp
}

// HasTimeLeft reports whether the expiration lies in the future.
func (a *Account) HasTimeLeft(now time.Time) bool {
	return a.Expiration != nil && a.Expiration.After(now)
}

// TimeLeft returns the remaining paid time, zero when lapsed.
func (a *Account) TimeLeft(now time.Time) time.Duration {
	if !a.HasTimeLeft(now) {
		return 0
	}
	return a.Expiration.Sub(now)
}

// RemainingTrialPeriods never goes below zero.
func (a *Account) RemainingTrialPeriods(max int) int {
	n := max - a.TrialPeriodsGiven
	if n < 0 {
		return 0
	}
	return n
}

// HasUnusedReferrer is true until the referral bonus has been paid out.
func (a *Account) HasUnusedReferrer() bool {
	return a.ReferrerID != nil && *a.ReferrerID != "" && !a.ReferrerUsed
}

// NoticeDue reports whether the cooldown since the last expiry notice has elapsed.
func (a *Account) NoticeDue(now time.Time, cooldown time.Duration) bool {
	return a.LastExpiryNotice == nil || a.LastExpiryNotice.Before(now.Add(-cooldown))
}

// AccountStatus is the read-only view derived from an account and its history.
type AccountStatus struct {
	AccountID             string
	Expiration            *time.Time
	TimeLeft              time.Duration
	IsPaid                bool
	RemainingTrialPeriods int
	CanHaveTrial          bool
	ActiveSubscription    *Subscription
}
