package repository

import (
	"context"

	"vpn-account-ledger/internal/domain/model"
)

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	CountConfirmedByAccount(ctx context.Context, tx Tx, accountID string) (int, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Payment, error)
}
