package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres).
// Repositories MUST accept a nil Tx and fall back to the pool.
type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a database transaction, passing the
// handle via tx. Use cases call repositories with the same ctx and tx:
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		acc, err := accounts.FindByID(ctx, tx, id)
//		...
//		return accounts.Save(ctx, tx, acc)
//	})
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
