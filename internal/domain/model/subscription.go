package model

import (
	"time"

	"vpn-account-ledger/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusNew       SubscriptionStatus = "new"       // waiting for first payment
	SubscriptionStatusActive    SubscriptionStatus = "active"    // recurring payments running
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled" // stopped
)

type SubscriptionPeriod string

const (
	Period3Months  SubscriptionPeriod = "3m"
	Period6Months  SubscriptionPeriod = "6m"
	Period12Months SubscriptionPeriod = "12m"
)

// Months returns the billing interval, zero for an unknown period.
func (p SubscriptionPeriod) Months() int {
	switch p {
	case Period3Months:
		return 3
	case Period6Months:
		return 6
	case Period12Months:
		return 12
	}
	return 0
}

// Subscription is a recurring payment arrangement. While active it keeps the
// account paid and exempt from expiry notices without touching Expiration.
type Subscription struct {
	ID                   string
	AccountID            string
	Backend              Backend
	Period               SubscriptionPeriod
	Status               SubscriptionStatus
	LastConfirmedPayment *time.Time
	BackendExtID         string
	CreatedAt            time.Time
}

func NewSubscription(id, accountID string, backend Backend, period SubscriptionPeriod) (*Subscription, error) {
	if id == "" || accountID == "" || !backend.Valid() || period.Months() == 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:        id,
		AccountID: accountID,
		Backend:   backend,
		Period:    period,
		Status:    SubscriptionStatusNew,
		CreatedAt: time.Now(),
	}, nil
}

func (s *Subscription) IsActive() bool { return s != nil && s.Status == SubscriptionStatusActive }

// Activate moves a new subscription to active. Activating an active one is a no-op.
func (s *Subscription) Activate() error {
	switch s.Status {
	case SubscriptionStatusActive:
		return nil
	case SubscriptionStatusNew:
		s.Status = SubscriptionStatusActive
		return nil
	}
	return domain.ErrInvalidTransition
}

func (s *Subscription) Cancel() {
	s.Status = SubscriptionStatusCancelled
}

// NextPaymentDate estimates when the next recurring payment is due.
func (s *Subscription) NextPaymentDate() *time.Time {
	if s.LastConfirmedPayment == nil || s.Period.Months() == 0 {
		return nil
	}
	next := s.LastConfirmedPayment.AddDate(0, s.Period.Months(), 0)
	return &next
}
