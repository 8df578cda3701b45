package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/infra/logging"
	"vpn-account-ledger/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentUseCase drives the payment lifecycle. Backends report their results
// through Confirm, Cancel and Reject.
type PaymentUseCase interface {
	Create(ctx context.Context, in CreatePaymentInput) (*model.Payment, error)
	// Confirm grants the payment time and the referral bonus. Confirming a
	// confirmed payment is a no-op.
	Confirm(ctx context.Context, id string, paidAmount int64, backendExtID string) (*model.Payment, error)
	Cancel(ctx context.Context, id, reason string) (*model.Payment, error)
	Reject(ctx context.Context, id, reason string) (*model.Payment, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.Payment, error)
}

type CreatePaymentInput struct {
	AccountID      string
	SubscriptionID string
	Backend        model.Backend
	Amount         int64
	Currency       string
	Time           time.Duration
	BackendExtID   string
}

type paymentUC struct {
	payments repository.PaymentRepository
	accounts repository.AccountRepository
	subs     repository.SubscriptionRepository
	ledger   *Ledger
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	payments repository.PaymentRepository,
	accounts repository.AccountRepository,
	subs repository.SubscriptionRepository,
	ledger *Ledger,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		payments: payments,
		accounts: accounts,
		subs:     subs,
		ledger:   ledger,
		tm:       tm,
		log:      logger,
	}
}

func (u *paymentUC) Create(ctx context.Context, in CreatePaymentInput) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Create")()

	p, err := model.NewPayment(uuid.NewString(), in.AccountID, in.Backend, in.Amount, strings.ToUpper(in.Currency), in.Time)
	if err != nil {
		return nil, err
	}
	p.BackendExtID = in.BackendExtID
	p.CreatedAt = u.ledger.Now()

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.accounts.FindByID(ctx, tx, in.AccountID); err != nil {
			return fmt.Errorf("account %s: %w", in.AccountID, err)
		}
		if in.SubscriptionID != "" {
			sub, err := u.subs.FindByID(ctx, tx, in.SubscriptionID)
			if err != nil {
				return fmt.Errorf("subscription %s: %w", in.SubscriptionID, err)
			}
			if sub.AccountID != in.AccountID {
				return fmt.Errorf("subscription belongs to another account: %w", domain.ErrInvalidArgument)
			}
			p.SubscriptionID = &sub.ID
		}
		return u.payments.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment(string(p.Status))
	return p, nil
}

func (u *paymentUC) Confirm(ctx context.Context, id string, paidAmount int64, backendExtID string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Confirm")()

	var (
		out     *model.Payment
		changed bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		out = p
		switch p.Status {
		case model.PaymentStatusConfirmed:
			return nil
		case model.PaymentStatusNew:
		default:
			return fmt.Errorf("confirm %s payment: %w", p.Status, domain.ErrInvalidTransition)
		}

		now := u.ledger.Now()
		p.Status = model.PaymentStatusConfirmed
		p.ConfirmedAt = &now
		p.PaidAmount = paidAmount
		if p.PaidAmount <= 0 {
			p.PaidAmount = p.Amount
		}
		if backendExtID != "" {
			p.BackendExtID = backendExtID
		}
		if err := u.payments.Save(ctx, tx, p); err != nil {
			return err
		}

		acc, err := u.accounts.FindByID(ctx, tx, p.AccountID)
		if err != nil {
			return err
		}
		if err := u.ledger.AddPaidTime(ctx, tx, acc, p.Time, SourcePayment); err != nil {
			return err
		}
		if err := u.ledger.OnPaymentConfirmed(ctx, tx, acc); err != nil {
			return err
		}
		if p.SubscriptionID != nil {
			if err := u.touchSubscription(ctx, tx, *p.SubscriptionID, now); err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.IncPayment(string(out.Status))
		metrics.AddPaymentRevenue(out.Currency, out.PaidAmount)
		u.log.Info().Str("payment_id", out.ID).Str("account_id", out.AccountID).Str("backend", string(out.Backend)).Msg("payment confirmed")
	}
	return out, nil
}

// touchSubscription records the payment on the subscription and activates it
// when it was still waiting for its first payment.
func (u *paymentUC) touchSubscription(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	sub, err := u.subs.FindByID(ctx, tx, id)
	if errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Str("subscription_id", id).Msg("confirmed payment references a missing subscription")
		return nil
	}
	if err != nil {
		return err
	}
	sub.LastConfirmedPayment = &at
	if sub.Status == model.SubscriptionStatusNew {
		if err := sub.Activate(); err != nil {
			return fmt.Errorf("activate subscription %s: %w", id, err)
		}
		metrics.IncSubscriptionTransition(sub.Status)
	}
	return u.subs.Save(ctx, tx, sub)
}

func (u *paymentUC) Cancel(ctx context.Context, id, reason string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Cancel")()
	return u.finish(ctx, id, model.PaymentStatusCancelled, reason)
}

func (u *paymentUC) Reject(ctx context.Context, id, reason string) (*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.Reject")()
	return u.finish(ctx, id, model.PaymentStatusRejected, reason)
}

func (u *paymentUC) finish(ctx context.Context, id string, status model.PaymentStatus, reason string) (*model.Payment, error) {
	var out *model.Payment
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.IsFinal() {
			return fmt.Errorf("%s payment cannot become %s: %w", p.Status, status, domain.ErrInvalidTransition)
		}
		p.Status = status
		p.StatusMessage = strings.TrimSpace(reason)
		out = p
		return u.payments.Save(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}
	metrics.IncPayment(string(status))
	u.log.Info().Str("payment_id", id).Str("status", string(status)).Msg("payment closed")
	return out, nil
}

func (u *paymentUC) ListByAccount(ctx context.Context, accountID string) ([]*model.Payment, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.ListByAccount")()
	return u.payments.ListByAccount(ctx, repository.NoTX, accountID)
}
