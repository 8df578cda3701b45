package repository

import (
	"context"

	"vpn-account-ledger/internal/domain/model"
)

// SubscriptionRepository is the port for recurring payment subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindActiveByAccount returns domain.ErrNotFound when no active subscription exists.
	FindActiveByAccount(ctx context.Context, tx Tx, accountID string) (*model.Subscription, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
