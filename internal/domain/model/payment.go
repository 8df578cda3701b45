package model

import (
	"time"

	"vpn-account-ledger/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusNew       PaymentStatus = "new"       // created, waiting for the backend
	PaymentStatusConfirmed PaymentStatus = "confirmed" // money received, time granted
	PaymentStatusCancelled PaymentStatus = "cancelled" // cancelled by user/admin
	PaymentStatusRejected  PaymentStatus = "rejected"  // refused by the backend
	PaymentStatusError     PaymentStatus = "error"     // backend reported a failure
)

// Backend identifies the payment provider that handled a payment or subscription.
type Backend string

const (
	BackendBitcoin  Backend = "bitcoin"
	BackendCoinbase Backend = "coinbase"
	BackendManual   Backend = "manual"
	BackendPayPal   Backend = "paypal"
	BackendStripe   Backend = "stripe"
)

func (b Backend) Valid() bool {
	switch b {
	case BackendBitcoin, BackendCoinbase, BackendManual, BackendPayPal, BackendStripe:
		return true
	}
	return false
}

// Payment is a single money transfer that grants Time once confirmed.
type Payment struct {
	ID             string
	AccountID      string
	SubscriptionID *string
	Backend        Backend
	Status         PaymentStatus
	Amount         int64 // cents
	PaidAmount     int64 // cents, set on confirmation
	Currency       string
	Time           time.Duration
	BackendExtID   string
	StatusMessage  string
	CreatedAt      time.Time
	ConfirmedAt    *time.Time
}

func NewPayment(id, accountID string, backend Backend, amount int64, currency string, d time.Duration) (*Payment, error) {
	if id == "" || accountID == "" || !backend.Valid() || amount <= 0 || d <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "EUR"
	}
	return &Payment{
		ID:        id,
		AccountID: accountID,
		Backend:   backend,
		Status:    PaymentStatusNew,
		Amount:    amount,
		Currency:  currency,
		Time:      d,
		CreatedAt: time.Now(),
	}, nil
}

func (p *Payment) IsFinal() bool {
	return p.Status != PaymentStatusNew
}
