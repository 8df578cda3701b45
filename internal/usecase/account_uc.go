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

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase exposes the account-facing ledger operations.
type AccountUseCase interface {
	// Signup creates an account. An unknown referrerID is ignored.
	Signup(ctx context.Context, username, email, referrerID string) (*model.Account, error)
	Get(ctx context.Context, id string) (*model.Account, error)
	Status(ctx context.Context, id string) (*model.AccountStatus, error)
	IsPaid(ctx context.Context, id string) (bool, error)
	CanHaveTrial(ctx context.Context, id string) (bool, error)
	GiveTrialPeriod(ctx context.Context, id string) (*model.Account, error)
	AddPaidTime(ctx context.Context, id string, d time.Duration) (*model.Account, error)
}

type accountUC struct {
	accounts repository.AccountRepository
	ledger   *Ledger
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewAccountUseCase(accounts repository.AccountRepository, ledger *Ledger, tm repository.TransactionManager, logger *zerolog.Logger) *accountUC {
	return &accountUC{
		accounts: accounts,
		ledger:   ledger,
		tm:       tm,
		log:      logger,
	}
}

func (u *accountUC) Signup(ctx context.Context, username, email, referrerID string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Signup")()

	acc, err := model.NewAccount("", username, email)
	if err != nil {
		return nil, err
	}
	referrerID = strings.TrimSpace(referrerID)

	err = u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.accounts.FindByUsername(ctx, tx, acc.Username)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("username %q: %w", acc.Username, domain.ErrAlreadyExists)
		}

		if referrerID != "" {
			ref, err := u.accounts.FindByID(ctx, tx, referrerID)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				u.log.Debug().Str("referrer_id", referrerID).Msg("unknown referrer ignored")
			case err != nil:
				return err
			default:
				acc.ReferrerID = &ref.ID
			}
		}
		acc.CreatedAt = u.ledger.Now()
		return u.accounts.Save(ctx, tx, acc)
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", acc.ID).Bool("referred", acc.ReferrerID != nil).Msg("account created")
	return acc, nil
}

func (u *accountUC) Get(ctx context.Context, id string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Get")()
	return u.accounts.FindByID(ctx, repository.NoTX, id)
}

func (u *accountUC) Status(ctx context.Context, id string) (*model.AccountStatus, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Status")()

	acc, err := u.accounts.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	return u.ledger.Status(ctx, repository.NoTX, acc)
}

func (u *accountUC) IsPaid(ctx context.Context, id string) (bool, error) {
	defer logging.TraceDuration(u.log, "AccountUC.IsPaid")()

	acc, err := u.accounts.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return false, err
	}
	return u.ledger.IsPaid(ctx, repository.NoTX, acc)
}

func (u *accountUC) CanHaveTrial(ctx context.Context, id string) (bool, error) {
	defer logging.TraceDuration(u.log, "AccountUC.CanHaveTrial")()

	acc, err := u.accounts.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return false, err
	}
	return u.ledger.CanHaveTrial(ctx, repository.NoTX, acc)
}

func (u *accountUC) GiveTrialPeriod(ctx context.Context, id string) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.GiveTrialPeriod")()

	var out *model.Account
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := u.ledger.GiveTrialPeriod(ctx, tx, acc); err != nil {
			return err
		}
		out = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("account_id", id).Int("trial_periods_given", out.TrialPeriodsGiven).Msg("trial period granted")
	return out, nil
}

func (u *accountUC) AddPaidTime(ctx context.Context, id string, d time.Duration) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.AddPaidTime")()

	var out *model.Account
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		acc, err := u.accounts.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := u.ledger.AddPaidTime(ctx, tx, acc, d, SourceManual); err != nil {
			return err
		}
		out = acc
		return nil
	})
	return out, err
}
