package repository

import (
	"context"

	"vpn-account-ledger/internal/domain/model"
)

// GiftCodeRepository is the port for gift code persistence.
type GiftCodeRepository interface {
	// Save creates or updates a gift code; a duplicate code yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, gc *model.GiftCode) error
	// FindByCode returns the code regardless of availability.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.GiftCode, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.GiftCode, error)
}

// GiftCodeRedemptionRepository stores one row per redemption attempt.
type GiftCodeRedemptionRepository interface {
	Save(ctx context.Context, tx Tx, r *model.GiftCodeRedemption) error
	HasApplied(ctx context.Context, tx Tx, accountID, giftCodeID string) (bool, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.GiftCodeRedemption, error)
}
