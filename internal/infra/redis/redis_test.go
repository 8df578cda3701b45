//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"vpn-account-ledger/internal/domain"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

var _ RedisClient = (*mockClient)(nil)

func (m *mockClient) Ping(ctx context.Context) error { return m.Called(ctx).Error(0) }

func (m *mockClient) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	return m.Called(ctx, key, value, exp).Error(0)
}

func (m *mockClient) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, exp)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockClient) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockClient) Expire(ctx context.Context, key string, exp time.Duration) error {
	return m.Called(ctx, key, exp).Error(0)
}

func (m *mockClient) Del(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockClient) RunScript(ctx context.Context, script *goredis.Script, keys []string, args ...interface{}) (interface{}, error) {
	a := m.Called(ctx, keys, args)
	return a.Get(0), a.Error(1)
}

func (m *mockClient) Close() error { return m.Called().Error(0) }

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("acquires and releases with the same token", func(t *testing.T) {
		cli := new(mockClient)
		cli.On("SetNX", ctx, "lock:k", mock.AnythingOfType("string"), time.Minute).Return(true, nil).Once()

		l := NewLocker(cli)
		token, err := l.TryLock(ctx, "lock:k", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		cli.On("RunScript", ctx, []string{"lock:k"}, []interface{}{token}).Return(int64(1), nil).Once()
		require.NoError(t, l.Unlock(ctx, "lock:k", token))
		cli.AssertExpectations(t)
	})

	t.Run("reports a held lock", func(t *testing.T) {
		cli := new(mockClient)
		cli.On("SetNX", ctx, "lock:k", mock.Anything, time.Minute).Return(false, nil)

		l := NewLocker(cli)
		l.backoff = time.Millisecond
		_, err := l.TryLock(ctx, "lock:k", time.Minute)
		assert.True(t, errors.Is(err, domain.ErrLockNotAcquired))
		cli.AssertNumberOfCalls(t, "SetNX", 3)
	})

	t.Run("surfaces redis errors", func(t *testing.T) {
		cli := new(mockClient)
		cli.On("SetNX", ctx, "lock:k", mock.Anything, time.Minute).Return(false, errors.New("conn refused"))

		l := NewLocker(cli)
		l.backoff = time.Millisecond
		_, err := l.TryLock(ctx, "lock:k", time.Minute)
		assert.EqualError(t, err, "conn refused")
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	key := GiftCodeAttemptKey("acc-1")
	assert.Equal(t, "rate_limit:gift_code:acc-1", key)

	cli := new(mockClient)
	cli.On("Incr", ctx, key).Return(int64(1), nil).Once()
	cli.On("Expire", ctx, key, time.Hour).Return(nil).Once()
	cli.On("Incr", ctx, key).Return(int64(2), nil).Once()
	cli.On("Incr", ctx, key).Return(int64(3), nil).Once()

	rl := NewRateLimiter(cli)
	for i, want := range []bool{true, true, false} {
		ok, err := rl.Allow(ctx, key, 2, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "attempt %d", i+1)
	}
	cli.AssertExpectations(t)
}
