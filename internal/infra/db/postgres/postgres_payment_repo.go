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

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, account_id, subscription_id, backend, status, amount, paid_amount, currency, time_seconds, backend_ext_id, status_message, created_at, confirmed_at`

func scanPayment(row pgx.Row) (*model.Payment, error) {
	var (
		p       model.Payment
		backend string
		status  string
		secs    int64
	)
	if err := row.Scan(&p.ID, &p.AccountID, &p.SubscriptionID, &backend, &status, &p.Amount, &p.PaidAmount, &p.Currency, &secs, &p.BackendExtID, &p.StatusMessage, &p.CreatedAt, &p.ConfirmedAt); err != nil {
		return nil, err
	}
	p.Backend = model.Backend(backend)
	p.Status = model.PaymentStatus(status)
	p.Time = time.Duration(secs) * time.Second
	return &p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, account_id, subscription_id, backend, status, amount, paid_amount, currency, time_seconds, backend_ext_id, status_message, created_at, confirmed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  subscription_id=$3, status=$5, paid_amount=$7, backend_ext_id=$10, status_message=$11, confirmed_at=$13;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.AccountID, p.SubscriptionID, string(p.Backend), string(p.Status), p.Amount, p.PaidAmount, p.Currency, int64(p.Time/time.Second), p.BackendExtID, p.StatusMessage, p.CreatedAt, p.ConfirmedAt)
	return mapWriteErr(err)
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE id=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapReadErr(err)
	}
	return p, nil
}

func (r *paymentRepo) CountConfirmedByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM payments WHERE account_id=$1 AND status='confirmed';`, accountID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *paymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE account_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}
