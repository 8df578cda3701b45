package repository

import (
	"context"
	"time"

	"vpn-account-ledger/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	// FindByID locks the row when called inside a transaction.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	FindByUsername(ctx context.Context, tx Tx, username string) (*model.Account, error)
	// FindExpiring returns accounts whose expiration lies in (from, to] and whose
	// last expiry notice is unset or older than noticeBefore.
	// A limit of zero returns every match.
	FindExpiring(ctx context.Context, tx Tx, from, to, noticeBefore time.Time, limit int) ([]*model.Account, error)
	SetLastExpiryNotice(ctx context.Context, tx Tx, id string, at time.Time) error
}
