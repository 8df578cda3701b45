package usecase

import (
	"context"
	"fmt"

	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/infra/logging"
	"vpn-account-ledger/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscriptionUseCase manages recurring payment subscriptions. An active
// subscription keeps the account paid without extending its expiration.
type SubscriptionUseCase interface {
	Create(ctx context.Context, accountID string, backend model.Backend, period model.SubscriptionPeriod, backendExtID string) (*model.Subscription, error)
	Activate(ctx context.Context, id string) (*model.Subscription, error)
	Cancel(ctx context.Context, id string) (*model.Subscription, error)
	GetActive(ctx context.Context, accountID string) (*model.Subscription, error)
	CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error)
}

type subscriptionUC struct {
	subs     repository.SubscriptionRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, accounts: accounts, tm: tm, log: logger}
}

func (u *subscriptionUC) Create(ctx context.Context, accountID string, backend model.Backend, period model.SubscriptionPeriod, backendExtID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Create")()

	s, err := model.NewSubscription(uuid.NewString(), accountID, backend, period)
	if err != nil {
		return nil, err
	}
	s.BackendExtID = backendExtID

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.accounts.FindByID(ctx, tx, accountID); err != nil {
			return fmt.Errorf("account %s: %w", accountID, err)
		}
		return u.subs.Save(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionTransition(s.Status)
	return s, nil
}

func (u *subscriptionUC) Activate(ctx context.Context, id string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Activate")()
	return u.transition(ctx, id, (*model.Subscription).Activate)
}

func (u *subscriptionUC) Cancel(ctx context.Context, id string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()
	return u.transition(ctx, id, func(s *model.Subscription) error {
		s.Cancel()
		return nil
	})
}

func (u *subscriptionUC) transition(ctx context.Context, id string, apply func(*model.Subscription) error) (*model.Subscription, error) {
	var out *model.Subscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		s, err := u.subs.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := apply(s); err != nil {
			return err
		}
		out = s
		return u.subs.Save(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionTransition(out.Status)
	u.log.Info().Str("subscription_id", id).Str("status", string(out.Status)).Msg("subscription updated")
	return out, nil
}

func (u *subscriptionUC) GetActive(ctx context.Context, accountID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.GetActive")()
	return u.subs.FindActiveByAccount(ctx, repository.NoTX, accountID)
}

func (u *subscriptionUC) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.CountByStatus")()
	return u.subs.CountByStatus(ctx, repository.NoTX)
}
