//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/adapter"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/usecase"
)

// -----------------------------
// Utilities
// -----------------------------

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// testClock is a settable clock shared by a Ledger and the tests.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fixture wires every use case over in-memory repositories.
type fixture struct {
	clock       *testClock
	accounts    *MockAccountRepo
	codes       *MockGiftCodeRepo
	redemptions *MockRedemptionRepo
	payments    *MockPaymentRepo
	subs        *MockSubscriptionRepo
	mailer      *MockMailer
	tm          *MockTxManager
	ledger      *usecase.Ledger
	policy      model.LedgerPolicy
}

func newFixture() *fixture {
	f := &fixture{
		clock:       newTestClock(),
		accounts:    NewMockAccountRepo(),
		codes:       NewMockGiftCodeRepo(),
		redemptions: NewMockRedemptionRepo(),
		payments:    NewMockPaymentRepo(),
		subs:        NewMockSubscriptionRepo(),
		mailer:      &MockMailer{},
		tm:          NewMockTxManager(),
		policy: model.LedgerPolicy{
			TrialPeriod:    24 * time.Hour,
			TrialPeriodMax: 2,
			ReferralBonus:  14 * 24 * time.Hour,
		},
	}
	f.ledger = usecase.NewLedger(f.accounts, f.subs, f.payments, f.policy, newTestLogger(), usecase.WithClock(f.clock.Now))
	return f
}

func (f *fixture) accountUC() usecase.AccountUseCase {
	return usecase.NewAccountUseCase(f.accounts, f.ledger, f.tm, newTestLogger())
}

func (f *fixture) giftCodeUC() usecase.GiftCodeUseCase {
	return usecase.NewGiftCodeUseCase(f.codes, f.redemptions, f.accounts, f.ledger, f.tm, newTestLogger())
}

func (f *fixture) paymentUC() usecase.PaymentUseCase {
	return usecase.NewPaymentUseCase(f.payments, f.accounts, f.subs, f.ledger, f.tm, newTestLogger())
}

func (f *fixture) subscriptionUC() usecase.SubscriptionUseCase {
	return usecase.NewSubscriptionUseCase(f.subs, f.accounts, f.tm, newTestLogger())
}

func (f *fixture) notificationUC() usecase.NotificationUseCase {
	return usecase.NewNotificationUseCase(f.accounts, f.subs, f.mailer, model.NotifyPolicy{}, f.ledger, newTestLogger())
}

// seedAccount stores a fresh account and returns its ID.
func (f *fixture) seedAccount(username, email string) string {
	acc, err := model.NewAccount("", username, email)
	if err != nil {
		panic(err)
	}
	acc.CreatedAt = f.clock.Now()
	_ = f.accounts.Save(context.Background(), nil, acc)
	return acc.ID
}

func (f *fixture) account(id string) *model.Account {
	acc, err := f.accounts.FindByID(context.Background(), nil, id)
	if err != nil {
		panic(err)
	}
	return acc
}

// =============================
// Adapters
// =============================

type MockMailer struct {
	mu   sync.Mutex
	Sent []adapter.Email

	SendFunc func(ctx context.Context, msg adapter.Email) error
}

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, msg adapter.Email) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, msg)
	return nil
}

// =============================
// Repositories
// =============================

// ---- Accounts ----

type MockAccountRepo struct {
	mu   sync.Mutex
	data map[string]*model.Account

	SaveFunc func(ctx context.Context, tx repository.Tx, a *model.Account) error
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{data: map[string]*model.Account{}}
}

func cloneAccount(a *model.Account) *model.Account {
	cp := *a
	if a.Expiration != nil {
		t := *a.Expiration
		cp.Expiration = &t
	}
	if a.LastExpiryNotice != nil {
		t := *a.LastExpiryNotice
		cp.LastExpiryNotice = &t
	}
	if a.ReferrerID != nil {
		s := *a.ReferrerID
		cp.ReferrerID = &s
	}
	return &cp
}

func (r *MockAccountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, a)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	r.data[a.ID] = cloneAccount(a)
	return nil
}

func (r *MockAccountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *MockAccountRepo) FindByUsername(ctx context.Context, tx repository.Tx, username string) (*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockAccountRepo) FindExpiring(ctx context.Context, tx repository.Tx, from, to, noticeBefore time.Time, limit int) ([]*model.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Account
	for _, a := range r.data {
		if a.Expiration == nil || !a.Expiration.After(from) || a.Expiration.After(to) {
			continue
		}
		if a.LastExpiryNotice != nil && !a.LastExpiryNotice.Before(noticeBefore) {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expiration.Before(*out[j].Expiration) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockAccountRepo) SetLastExpiryNotice(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	a.LastExpiryNotice = &at
	return nil
}

// ---- Gift codes ----

type MockGiftCodeRepo struct {
	mu   sync.Mutex
	data map[string]*model.GiftCode // by code

	FindByCodeFunc func(ctx context.Context, tx repository.Tx, code string) (*model.GiftCode, error)
}

var _ repository.GiftCodeRepository = (*MockGiftCodeRepo)(nil)

func NewMockGiftCodeRepo() *MockGiftCodeRepo {
	return &MockGiftCodeRepo{data: map[string]*model.GiftCode{}}
}

func (r *MockGiftCodeRepo) Save(ctx context.Context, tx repository.Tx, gc *model.GiftCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.data[gc.Code]; ok && cur.ID != gc.ID {
		return domain.ErrAlreadyExists
	}
	cp := *gc
	r.data[gc.Code] = &cp
	return nil
}

func (r *MockGiftCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.GiftCode, error) {
	if r.FindByCodeFunc != nil {
		return r.FindByCodeFunc(ctx, tx, code)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	gc, ok := r.data[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *gc
	return &cp, nil
}

func (r *MockGiftCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.GiftCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.GiftCode, 0, len(r.data))
	for _, gc := range r.data {
		cp := *gc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- Redemptions ----

type MockRedemptionRepo struct {
	mu   sync.Mutex
	Rows []*model.GiftCodeRedemption
}

var _ repository.GiftCodeRedemptionRepository = (*MockRedemptionRepo)(nil)

func NewMockRedemptionRepo() *MockRedemptionRepo { return &MockRedemptionRepo{} }

func (r *MockRedemptionRepo) Save(ctx context.Context, tx repository.Tx, red *model.GiftCodeRedemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *red
	r.Rows = append(r.Rows, &cp)
	return nil
}

func (r *MockRedemptionRepo) HasApplied(ctx context.Context, tx repository.Tx, accountID, giftCodeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, red := range r.Rows {
		if red.AccountID == accountID && red.GiftCodeID == giftCodeID && red.Applied() {
			return true, nil
		}
	}
	return false, nil
}

func (r *MockRedemptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.GiftCodeRedemption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.GiftCodeRedemption
	for _, red := range r.Rows {
		if red.AccountID == accountID {
			cp := *red
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Payments ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.data[p.ID] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *MockPaymentRepo) CountConfirmedByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.data {
		if p.AccountID == accountID && p.Status == model.PaymentStatusConfirmed {
			n++
		}
	}
	return n, nil
}

func (r *MockPaymentRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Payment
	for _, p := range r.data {
		if p.AccountID == accountID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Subscriptions ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSubscriptionRepo) FindActiveByAccount(ctx context.Context, tx repository.Tx, accountID string) (*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.data {
		if s.AccountID == accountID && s.IsActive() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.SubscriptionStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.SubscriptionStatus]int{}
	for _, s := range r.data {
		out[s.Status]++
	}
	return out, nil
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately without a real transaction unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, nil)
}
