package model

import (
	"time"

	"vpn-account-ledger/internal/domain"
)

const GiftCodeLength = 10

// GiftCode grants a fixed amount of paid time when redeemed.
type GiftCode struct {
	ID        string
	Code      string
	Time      time.Duration
	SingleUse bool
	FreeOnly  bool
	Available bool
	Comment   string
	CreatedAt time.Time
}

func NewGiftCode(id, code string, d time.Duration, singleUse, freeOnly bool, comment string) (*GiftCode, error) {
	if id == "" || len(code) != GiftCodeLength || d <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &GiftCode{
		ID:        id,
		Code:      code,
		Time:      d,
		SingleUse: singleUse,
		FreeOnly:  freeOnly,
		Available: true,
		Comment:   comment,
		CreatedAt: time.Now(),
	}, nil
}

type RedemptionOutcome string

const (
	RedemptionApplied             RedemptionOutcome = "applied"
	RedemptionRejectedFreeOnly    RedemptionOutcome = "rejected_free_only"
	RedemptionRejectedAlreadyUsed RedemptionOutcome = "rejected_already_used"
)

// GiftCodeRedemption records one redemption attempt, applied or not.
type GiftCodeRedemption struct {
	ID          string
	AccountID   string
	GiftCodeID  string
	Outcome     RedemptionOutcome
	TimeGranted time.Duration
	CreatedAt   time.Time
}

func (r *GiftCodeRedemption) Applied() bool {
	return r != nil && r.Outcome == RedemptionApplied
}
