//go:build !integration

package api

import (
	"context"
	"time"

	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/usecase"

	"github.com/stretchr/testify/mock"
)

type mockAccountUC struct{ mock.Mock }

var _ usecase.AccountUseCase = (*mockAccountUC)(nil)

func account(args mock.Arguments) (*model.Account, error) {
	if a, ok := args.Get(0).(*model.Account); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountUC) Signup(ctx context.Context, username, email, referrerID string) (*model.Account, error) {
	return account(m.Called(ctx, username, email, referrerID))
}

func (m *mockAccountUC) Get(ctx context.Context, id string) (*model.Account, error) {
	return account(m.Called(ctx, id))
}

func (m *mockAccountUC) Status(ctx context.Context, id string) (*model.AccountStatus, error) {
	args := m.Called(ctx, id)
	if st, ok := args.Get(0).(*model.AccountStatus); ok {
		return st, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountUC) IsPaid(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountUC) CanHaveTrial(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountUC) GiveTrialPeriod(ctx context.Context, id string) (*model.Account, error) {
	return account(m.Called(ctx, id))
}

func (m *mockAccountUC) AddPaidTime(ctx context.Context, id string, d time.Duration) (*model.Account, error) {
	return account(m.Called(ctx, id, d))
}

type mockGiftCodeUC struct{ mock.Mock }

var _ usecase.GiftCodeUseCase = (*mockGiftCodeUC)(nil)

func giftCode(args mock.Arguments) (*model.GiftCode, error) {
	if gc, ok := args.Get(0).(*model.GiftCode); ok {
		return gc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGiftCodeUC) Create(ctx context.Context, d time.Duration, singleUse, freeOnly bool, comment string) (*model.GiftCode, error) {
	return giftCode(m.Called(ctx, d, singleUse, freeOnly, comment))
}

func (m *mockGiftCodeUC) List(ctx context.Context, offset, limit int) ([]*model.GiftCode, error) {
	args := m.Called(ctx, offset, limit)
	list, _ := args.Get(0).([]*model.GiftCode)
	return list, args.Error(1)
}

func (m *mockGiftCodeUC) SetAvailable(ctx context.Context, code string, available bool) (*model.GiftCode, error) {
	return giftCode(m.Called(ctx, code, available))
}

func (m *mockGiftCodeUC) Redemptions(ctx context.Context, accountID string) ([]*model.GiftCodeRedemption, error) {
	args := m.Called(ctx, accountID)
	list, _ := args.Get(0).([]*model.GiftCodeRedemption)
	return list, args.Error(1)
}

func (m *mockGiftCodeUC) Redeem(ctx context.Context, accountID, code string) (*model.GiftCodeRedemption, error) {
	args := m.Called(ctx, accountID, code)
	if r, ok := args.Get(0).(*model.GiftCodeRedemption); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPaymentUC struct{ mock.Mock }

var _ usecase.PaymentUseCase = (*mockPaymentUC)(nil)

func payment(args mock.Arguments) (*model.Payment, error) {
	if p, ok := args.Get(0).(*model.Payment); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPaymentUC) Create(ctx context.Context, in usecase.CreatePaymentInput) (*model.Payment, error) {
	return payment(m.Called(ctx, in))
}

func (m *mockPaymentUC) Confirm(ctx context.Context, id string, paidAmount int64, backendExtID string) (*model.Payment, error) {
	return payment(m.Called(ctx, id, paidAmount, backendExtID))
}

func (m *mockPaymentUC) Cancel(ctx context.Context, id, reason string) (*model.Payment, error) {
	return payment(m.Called(ctx, id, reason))
}

func (m *mockPaymentUC) Reject(ctx context.Context, id, reason string) (*model.Payment, error) {
	return payment(m.Called(ctx, id, reason))
}

func (m *mockPaymentUC) ListByAccount(ctx context.Context, accountID string) ([]*model.Payment, error) {
	args := m.Called(ctx, accountID)
	list, _ := args.Get(0).([]*model.Payment)
	return list, args.Error(1)
}

type mockSubscriptionUC struct{ mock.Mock }

var _ usecase.SubscriptionUseCase = (*mockSubscriptionUC)(nil)

func subscription(args mock.Arguments) (*model.Subscription, error) {
	if s, ok := args.Get(0).(*model.Subscription); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSubscriptionUC) Create(ctx context.Context, accountID string, backend model.Backend, period model.SubscriptionPeriod, backendExtID string) (*model.Subscription, error) {
	return subscription(m.Called(ctx, accountID, backend, period, backendExtID))
}

func (m *mockSubscriptionUC) Activate(ctx context.Context, id string) (*model.Subscription, error) {
	return subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionUC) Cancel(ctx context.Context, id string) (*model.Subscription, error) {
	return subscription(m.Called(ctx, id))
}

func (m *mockSubscriptionUC) GetActive(ctx context.Context, accountID string) (*model.Subscription, error) {
	return subscription(m.Called(ctx, accountID))
}

func (m *mockSubscriptionUC) CountByStatus(ctx context.Context) (map[model.SubscriptionStatus]int, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[model.SubscriptionStatus]int)
	return counts, args.Error(1)
}

type mockSweeper struct{ mock.Mock }

func (m *mockSweeper) RunOnce(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockLimiter struct{ mock.Mock }

func (m *mockLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
