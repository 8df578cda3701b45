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

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, username, email, expiration, last_expiry_notice, referrer_id, referrer_used, trial_periods_given, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.Expiration, &a.LastExpiryNotice, &a.ReferrerID, &a.ReferrerUsed, &a.TrialPeriodsGiven, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, username, email, expiration, last_expiry_notice, referrer_id, referrer_used, trial_periods_given, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  username=$2, email=$3, expiration=$4, last_expiry_notice=$5, referrer_id=$6, referrer_used=$7, trial_periods_given=$8;`

	_, err := execSQL(ctx, r.pool, tx, q, a.ID, a.Username, a.Email, a.Expiration, a.LastExpiryNotice, a.ReferrerID, a.ReferrerUsed, a.TrialPeriodsGiven, a.CreatedAt)
	return mapWriteErr(err)
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := forUpdate(`SELECT `+accountColumns+` FROM accounts WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

func (r *accountRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+accountColumns+` FROM accounts WHERE username=$1;`, username)
	if err != nil {
		return nil, err
	}
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return a, nil
}

func (r *accountRepo) FindExpiring(ctx context.Context, tx repository.Tx, from, to, noticeBefore time.Time, limit int) ([]*model.Account, error) {
	q := `
SELECT ` + accountColumns + `
  FROM accounts
 WHERE expiration > $1 AND expiration <= $2
   AND (last_expiry_notice IS NULL OR last_expiry_notice < $3)
 ORDER BY expiration ASC`
	args := []interface{}{from, to, noticeBefore}
	if limit > 0 {
		q += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *accountRepo) SetLastExpiryNotice(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE accounts SET last_expiry_notice=$2 WHERE id=$1;`, id, at)
	if err != nil {
		return mapWriteErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
