package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
)

var (
	_ repository.GiftCodeRepository           = (*giftCodeRepo)(nil)
	_ repository.GiftCodeRedemptionRepository = (*redemptionRepo)(nil)
)

type giftCodeRepo struct {
	pool *pgxpool.Pool
}

func NewGiftCodeRepo(pool *pgxpool.Pool) *giftCodeRepo {
	return &giftCodeRepo{pool: pool}
}

const giftCodeColumns = `id, code, time_seconds, single_use, free_only, available, comment, created_at`

func scanGiftCode(row pgx.Row) (*model.GiftCode, error) {
	var (
		gc   model.GiftCode
		secs int64
	)
	if err := row.Scan(&gc.ID, &gc.Code, &secs, &gc.SingleUse, &gc.FreeOnly, &gc.Available, &gc.Comment, &gc.CreatedAt); err != nil {
		return nil, err
	}
	gc.Time = time.Duration(secs) * time.Second
	return &gc, nil
}

// Save returns domain.ErrAlreadyExists when another row holds the same code.
func (r *giftCodeRepo) Save(ctx context.Context, tx repository.Tx, gc *model.GiftCode) error {
	const q = `
INSERT INTO gift_codes (id, code, time_seconds, single_use, free_only, available, comment, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  time_seconds=$3, single_use=$4, free_only=$5, available=$6, comment=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, gc.ID, gc.Code, int64(gc.Time/time.Second), gc.SingleUse, gc.FreeOnly, gc.Available, gc.Comment, gc.CreatedAt)
	return mapWriteErr(err)
}

func (r *giftCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.GiftCode, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+giftCodeColumns+` FROM gift_codes WHERE code=$1;`, code)
	if err != nil {
		return nil, err
	}
	gc, err := scanGiftCode(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return gc, nil
}

func (r *giftCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.GiftCode, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + giftCodeColumns + ` FROM gift_codes ORDER BY created_at DESC, id OFFSET $1 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.GiftCode
	for rows.Next() {
		gc, err := scanGiftCode(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, gc)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

// -----------------------------
// Redemptions
// -----------------------------

type redemptionRepo struct {
	pool *pgxpool.Pool
}

func NewGiftCodeRedemptionRepo(pool *pgxpool.Pool) *redemptionRepo {
	return &redemptionRepo{pool: pool}
}

func (r *redemptionRepo) Save(ctx context.Context, tx repository.Tx, red *model.GiftCodeRedemption) error {
	const q = `
INSERT INTO gift_code_redemptions (id, account_id, gift_code_id, outcome, time_granted_seconds, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, tx, q, red.ID, red.AccountID, red.GiftCodeID, string(red.Outcome), int64(red.TimeGranted/time.Second), red.CreatedAt)
	return mapWriteErr(err)
}

func (r *redemptionRepo) HasApplied(ctx context.Context, tx repository.Tx, accountID, giftCodeID string) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM gift_code_redemptions
   WHERE account_id=$1 AND gift_code_id=$2 AND outcome='applied'
);`
	row, err := pickRow(ctx, r.pool, tx, q, accountID, giftCodeID)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := row.Scan(&ok); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return ok, nil
}

func (r *redemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.GiftCodeRedemption, error) {
	const q = `
SELECT id, account_id, gift_code_id, outcome, time_granted_seconds, created_at
  FROM gift_code_redemptions
 WHERE account_id=$1
 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.GiftCodeRedemption
	for rows.Next() {
		var (
			red     model.GiftCodeRedemption
			outcome string
			secs    int64
		)
		if err := rows.Scan(&red.ID, &red.AccountID, &red.GiftCodeID, &outcome, &secs, &red.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		red.Outcome = model.RedemptionOutcome(outcome)
		red.TimeGranted = time.Duration(secs) * time.Second
		out = append(out, &red)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
