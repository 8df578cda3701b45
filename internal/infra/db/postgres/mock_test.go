//go:build !integration

package postgres

import (
	"context"
	"time"

	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
	red "vpn-account-ledger/internal/infra/redis"

	"github.com/go-redis/redis/v8"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerAccountRepo mocks the database repository that the decorator wraps.
type mockInnerAccountRepo struct {
	SaveFunc                func(ctx context.Context, tx repository.Tx, a *model.Account) error
	FindByIDFunc            func(ctx context.Context, tx repository.Tx, id string) (*model.Account, error)
	FindByUsernameFunc      func(ctx context.Context, tx repository.Tx, username string) (*model.Account, error)
	FindExpiringFunc        func(ctx context.Context, tx repository.Tx, from, to, noticeBefore time.Time, limit int) ([]*model.Account, error)
	SetLastExpiryNoticeFunc func(ctx context.Context, tx repository.Tx, id string, at time.Time) error
}

func (m *mockInnerAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	return m.SaveFunc(ctx, tx, a)
}
func (m *mockInnerAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerAccountRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	return m.FindByUsernameFunc(ctx, tx, username)
}
func (m *mockInnerAccountRepo) FindExpiring(ctx context.Context, tx repository.Tx, from, to, noticeBefore time.Time, limit int) ([]*model.Account, error) {
	return m.FindExpiringFunc(ctx, tx, from, to, noticeBefore, limit)
}
func (m *mockInnerAccountRepo) SetLastExpiryNotice(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	return m.SetLastExpiryNoticeFunc(ctx, tx, id, at)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	return nil, nil
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
