package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/infra/metrics"
	red "vpn-account-ledger/internal/infra/redis"

	"github.com/rs/zerolog"
)

var _ repository.AccountRepository = (*accountRepoCacheDecorator)(nil)

// accountRepoCacheDecorator caches lookups made outside a transaction.
// Reads inside a transaction always go to the database so row locks apply.
type accountRepoCacheDecorator struct {
	inner repository.AccountRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewAccountRepoCacheDecorator(inner repository.AccountRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.AccountRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &accountRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: logger}
}

func accountKey(id string) string { return fmt.Sprintf("account:id:%s", id) }

// invalidate drops the cached row now and, inside a transaction, again after
// commit so a read racing the transaction cannot keep the old row cached.
func (d *accountRepoCacheDecorator) invalidate(ctx context.Context, tx repository.Tx, id string) {
	d.del(ctx, id)
	if tx != nil {
		onCommit(ctx, func(ctx context.Context) { d.del(ctx, id) })
	}
}

func (d *accountRepoCacheDecorator) del(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, accountKey(id)); err != nil {
		d.log.Warn().Err(err).Str("account_id", id).Msg("account cache invalidation failed")
	}
}

func (d *accountRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if err := d.inner.Save(ctx, tx, a); err != nil {
		return err
	}
	d.invalidate(ctx, tx, a.ID)
	return nil
}

func (d *accountRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}

	key := accountKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var acc model.Account
		if json.Unmarshal([]byte(val), &acc) == nil {
			metrics.IncCacheRequest("account", "hit")
			return &acc, nil
		}
	} else if err != red.Nil {
		d.log.Warn().Err(err).Msg("account cache read failed")
	}

	metrics.IncCacheRequest("account", "miss")
	acc, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(acc); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return acc, nil
}

func (d *accountRepoCacheDecorator) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	return d.inner.FindByUsername(ctx, tx, username)
}

func (d *accountRepoCacheDecorator) FindExpiring(ctx context.Context, tx repository.Tx, from, to, noticeBefore time.Time, limit int) ([]*model.Account, error) {
	return d.inner.FindExpiring(ctx, tx, from, to, noticeBefore, limit)
}

func (d *accountRepoCacheDecorator) SetLastExpiryNotice(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	if err := d.inner.SetLastExpiryNotice(ctx, tx, id, at); err != nil {
		return err
	}
	d.invalidate(ctx, tx, id)
	return nil
}
