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
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const giftCodeMaxAttempts = 5

// Compile-time check
var _ GiftCodeUseCase = (*giftCodeUC)(nil)

type GiftCodeUseCase interface {
	Create(ctx context.Context, d time.Duration, singleUse, freeOnly bool, comment string) (*model.GiftCode, error)
	List(ctx context.Context, offset, limit int) ([]*model.GiftCode, error)
	SetAvailable(ctx context.Context, code string, available bool) (*model.GiftCode, error)
	// Redeem records the attempt and returns it. A rejected attempt is not an
	// error; inspect the redemption outcome.
	Redeem(ctx context.Context, accountID, code string) (*model.GiftCodeRedemption, error)
	// Redemptions lists every recorded attempt of an account, oldest first.
	Redemptions(ctx context.Context, accountID string) ([]*model.GiftCodeRedemption, error)
}

type giftCodeUC struct {
	codes       repository.GiftCodeRepository
	redemptions repository.GiftCodeRedemptionRepository
	accounts    repository.AccountRepository
	ledger      *Ledger
	tm          repository.TransactionManager
	log         *zerolog.Logger

	generate func() (string, error)
}

func NewGiftCodeUseCase(
	codes repository.GiftCodeRepository,
	redemptions repository.GiftCodeRedemptionRepository,
	accounts repository.AccountRepository,
	ledger *Ledger,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *giftCodeUC {
	return &giftCodeUC{
		codes:       codes,
		redemptions: redemptions,
		accounts:    accounts,
		ledger:      ledger,
		tm:          tm,
		log:         logger,
		generate:    RandomGiftCode,
	}
}

func (u *giftCodeUC) Create(ctx context.Context, d time.Duration, singleUse, freeOnly bool, comment string) (*model.GiftCode, error) {
	defer logging.TraceDuration(u.log, "GiftCodeUC.Create")()

	for attempt := 1; attempt <= giftCodeMaxAttempts; attempt++ {
		code, err := u.generate()
		if err != nil {
			return nil, fmt.Errorf("generate gift code: %w", err)
		}
		gc, err := model.NewGiftCode(uuid.NewString(), code, d, singleUse, freeOnly, strings.TrimSpace(comment))
		if err != nil {
			return nil, err
		}
		gc.CreatedAt = u.ledger.Now()

		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			_, err := u.codes.FindByCode(ctx, tx, code)
			if err == nil {
				return domain.ErrAlreadyExists
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return u.codes.Save(ctx, tx, gc)
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			u.log.Warn().Int("attempt", attempt).Msg("gift code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		u.log.Info().Str("gift_code_id", gc.ID).Dur("time", d).Bool("single_use", singleUse).Bool("free_only", freeOnly).Msg("gift code created")
		return gc, nil
	}
	return nil, domain.ErrGiftCodeCollision
}

func (u *giftCodeUC) List(ctx context.Context, offset, limit int) ([]*model.GiftCode, error) {
	defer logging.TraceDuration(u.log, "GiftCodeUC.List")()
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return u.codes.List(ctx, repository.NoTX, offset, limit)
}

func (u *giftCodeUC) SetAvailable(ctx context.Context, code string, available bool) (*model.GiftCode, error) {
	defer logging.TraceDuration(u.log, "GiftCodeUC.SetAvailable")()

	var out *model.GiftCode
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		gc, err := u.codes.FindByCode(ctx, tx, strings.TrimSpace(code))
		if err != nil {
			return err
		}
		gc.Available = available
		if err := u.codes.Save(ctx, tx, gc); err != nil {
			return err
		}
		out = gc
		return nil
	})
	return out, err
}

func (u *giftCodeUC) Redeem(ctx context.Context, accountID, code string) (*model.GiftCodeRedemption, error) {
	defer logging.TraceDuration(u.log, "GiftCodeUC.Redeem")()

	code = strings.TrimSpace(code)
	var red *model.GiftCodeRedemption
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		gc, err := u.codes.FindByCode(ctx, tx, code)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && !gc.Available) {
			return fmt.Errorf("%w: %w", domain.ErrGiftCodeNotFound, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}
		acc, err := u.accounts.FindByID(ctx, tx, accountID)
		if err != nil {
			return err
		}

		outcome, err := u.decide(ctx, tx, acc, gc)
		if err != nil {
			return err
		}
		red = &model.GiftCodeRedemption{
			ID:         ulid.Make().String(),
			AccountID:  acc.ID,
			GiftCodeID: gc.ID,
			Outcome:    outcome,
			CreatedAt:  u.ledger.Now(),
		}
		if outcome == model.RedemptionApplied {
			if err := u.ledger.AddPaidTime(ctx, tx, acc, gc.Time, SourceGiftCode); err != nil {
				return err
			}
			red.TimeGranted = gc.Time
		}
		return u.redemptions.Save(ctx, tx, red)
	})
	if err != nil {
		if errors.Is(err, domain.ErrGiftCodeNotFound) {
			metrics.IncGiftCodeRedemption("not_found")
		}
		return nil, err
	}

	metrics.IncGiftCodeRedemption(string(red.Outcome))
	u.log.Info().
		Str("account_id", accountID).
		Str("gift_code_id", red.GiftCodeID).
		Str("outcome", string(red.Outcome)).
		Msg("gift code redeemed")
	return red, nil
}

func (u *giftCodeUC) Redemptions(ctx context.Context, accountID string) ([]*model.GiftCodeRedemption, error) {
	defer logging.TraceDuration(u.log, "GiftCodeUC.Redemptions")()

	if _, err := u.accounts.FindByID(ctx, repository.NoTX, accountID); err != nil {
		return nil, err
	}
	return u.redemptions.ListByAccount(ctx, repository.NoTX, accountID)
}

func (u *giftCodeUC) decide(ctx context.Context, tx repository.Tx, acc *model.Account, gc *model.GiftCode) (model.RedemptionOutcome, error) {
	if gc.FreeOnly {
		paid, err := u.ledger.IsPaid(ctx, tx, acc)
		if err != nil {
			return "", err
		}
		if paid {
			return model.RedemptionRejectedFreeOnly, nil
		}
	}
	if gc.SingleUse {
		used, err := u.redemptions.HasApplied(ctx, tx, acc.ID, gc.ID)
		if err != nil {
			return "", err
		}
		if used {
			return model.RedemptionRejectedAlreadyUsed, nil
		}
	}
	return model.RedemptionApplied, nil
}
