//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/domain/ports/repository"
	"vpn-account-ledger/internal/usecase"
)

func TestRandomGiftCode(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := usecase.RandomGiftCode()
		if err != nil {
			t.Fatalf("RandomGiftCode failed: %v", err)
		}
		if len(code) != model.GiftCodeLength {
			t.Fatalf("expected %d characters, got %q", model.GiftCodeLength, code)
		}
		for _, c := range code {
			if !strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
				t.Fatalf("unexpected character %q in %q", c, code)
			}
		}
		seen[code] = struct{}{}
	}
	if len(seen) != 1000 {
		t.Errorf("expected 1000 distinct codes, got %d", len(seen))
	}
}

func TestGiftCodeUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should create an available code", func(t *testing.T) {
		f := newFixture()
		gc, err := f.giftCodeUC().Create(ctx, 42*day, true, false, " promo ")
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if len(gc.Code) != 10 || !gc.Available || gc.Comment != "promo" {
			t.Errorf("unexpected gift code %+v", gc)
		}
		if _, err := f.codes.FindByCode(ctx, nil, gc.Code); err != nil {
			t.Errorf("gift code not persisted: %v", err)
		}
	})

	t.Run("should retry after a collision", func(t *testing.T) {
		f := newFixture()
		calls := 0
		f.codes.FindByCodeFunc = func(ctx context.Context, tx repository.Tx, code string) (*model.GiftCode, error) {
			calls++
			if calls == 1 {
				return &model.GiftCode{ID: "taken", Code: code}, nil
			}
			return nil, domain.ErrNotFound
		}
		if _, err := f.giftCodeUC().Create(ctx, day, false, false, ""); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if calls != 2 {
			t.Errorf("expected 2 lookups, got %d", calls)
		}
	})

	t.Run("should give up after repeated collisions", func(t *testing.T) {
		f := newFixture()
		f.codes.FindByCodeFunc = func(ctx context.Context, tx repository.Tx, code string) (*model.GiftCode, error) {
			return &model.GiftCode{ID: "taken", Code: code}, nil
		}
		if _, err := f.giftCodeUC().Create(ctx, day, false, false, ""); !errors.Is(err, domain.ErrGiftCodeCollision) {
			t.Errorf("expected ErrGiftCodeCollision, got %v", err)
		}
	})
}

func TestGiftCodeUseCase_Redeem(t *testing.T) {
	ctx := context.Background()

	seedCode := func(f *fixture, code string, singleUse, freeOnly bool) *model.GiftCode {
		gc, err := model.NewGiftCode("gc-"+code, code, 42*day, singleUse, freeOnly, "")
		if err != nil {
			t.Fatal(err)
		}
		_ = f.codes.Save(ctx, nil, gc)
		return gc
	}

	t.Run("should grant a normal code every time", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "NORMAL0001", false, false)
		uc := f.giftCodeUC()

		for i := 0; i < 2; i++ {
			red, err := uc.Redeem(ctx, id, "NORMAL0001")
			if err != nil {
				t.Fatalf("Redeem %d failed: %v", i+1, err)
			}
			if !red.Applied() || red.TimeGranted != 42*day {
				t.Errorf("redeem %d: unexpected redemption %+v", i+1, red)
			}
		}
		if f.account(id).TimeLeft(f.clock.Now()) != 84*day {
			t.Errorf("expected 84 days, got %v", f.account(id).TimeLeft(f.clock.Now()))
		}
	})

	t.Run("should grant a single use code once", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "SINGLE0001", true, false)
		uc := f.giftCodeUC()

		if _, err := uc.Redeem(ctx, id, "SINGLE0001"); err != nil {
			t.Fatalf("first Redeem failed: %v", err)
		}
		exp := *f.account(id).Expiration

		red, err := uc.Redeem(ctx, id, "SINGLE0001")
		if err != nil {
			t.Fatalf("second Redeem returned an error: %v", err)
		}
		if red.Outcome != model.RedemptionRejectedAlreadyUsed || red.TimeGranted != 0 {
			t.Errorf("unexpected redemption %+v", red)
		}
		if !f.account(id).Expiration.Equal(exp) {
			t.Error("expiration changed on a repeated single use redemption")
		}
		if len(f.redemptions.Rows) != 2 {
			t.Errorf("expected a row per attempt, got %d", len(f.redemptions.Rows))
		}
	})

	t.Run("should refuse a free only code for a paid account", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "FREEONLY01", false, true)
		if _, err := f.accountUC().AddPaidTime(ctx, id, day); err != nil {
			t.Fatal(err)
		}
		exp := *f.account(id).Expiration

		red, err := f.giftCodeUC().Redeem(ctx, id, "FREEONLY01")
		if err != nil {
			t.Fatalf("Redeem returned an error: %v", err)
		}
		if red.Outcome != model.RedemptionRejectedFreeOnly {
			t.Errorf("expected rejected_free_only, got %s", red.Outcome)
		}
		if !f.account(id).Expiration.Equal(exp) {
			t.Error("free only code must not add time to a paid account")
		}
	})

	t.Run("should refuse a free only code when only a subscription is active", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "FREEONLY03", false, true)
		sub, _ := model.NewSubscription("sub-1", id, model.BackendStripe, model.Period12Months)
		_ = sub.Activate()
		_ = f.subs.Save(ctx, nil, sub)

		red, err := f.giftCodeUC().Redeem(ctx, id, "FREEONLY03")
		if err != nil {
			t.Fatalf("Redeem returned an error: %v", err)
		}
		if red.Outcome != model.RedemptionRejectedFreeOnly || red.TimeGranted != 0 {
			t.Errorf("expected rejected_free_only without time, got %+v", red)
		}
		if f.account(id).Expiration != nil {
			t.Error("expiration must stay unset for a subscriber")
		}
	})

	t.Run("should let a rejected attempt be followed by a single use grant", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "FREEONLY04", true, true)
		sub, _ := model.NewSubscription("sub-1", id, model.BackendStripe, model.Period3Months)
		_ = sub.Activate()
		_ = f.subs.Save(ctx, nil, sub)

		if red, _ := f.giftCodeUC().Redeem(ctx, id, "FREEONLY04"); red.Outcome != model.RedemptionRejectedFreeOnly {
			t.Fatalf("expected rejected_free_only, got %s", red.Outcome)
		}
		sub.Cancel()
		_ = f.subs.Save(ctx, nil, sub)

		red, err := f.giftCodeUC().Redeem(ctx, id, "FREEONLY04")
		if err != nil || !red.Applied() {
			t.Fatalf("only applied attempts consume a single use code, got %+v err=%v", red, err)
		}
	})

	t.Run("should grant a free only code to an unpaid account", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "FREEONLY02", false, true)
		red, err := f.giftCodeUC().Redeem(ctx, id, " FREEONLY02 ")
		if err != nil || !red.Applied() {
			t.Fatalf("expected the code to apply, got %+v err=%v", red, err)
		}
	})

	t.Run("should report unknown and retired codes as not found", func(t *testing.T) {
		f := newFixture()
		id := f.seedAccount("alice", "")
		seedCode(f, "RETIRED001", false, false)
		if _, err := f.giftCodeUC().SetAvailable(ctx, "RETIRED001", false); err != nil {
			t.Fatal(err)
		}

		for _, code := range []string{"UNKNOWN001", "RETIRED001"} {
			_, err := f.giftCodeUC().Redeem(ctx, id, code)
			if !errors.Is(err, domain.ErrGiftCodeNotFound) || !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("%s: expected ErrGiftCodeNotFound, got %v", code, err)
			}
		}
		if len(f.redemptions.Rows) != 0 {
			t.Error("no redemption row is written for an unknown code")
		}
		if f.account(id).Expiration != nil {
			t.Error("expiration must stay unset")
		}
	})
}

func TestGiftCodeUseCase_Redemptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	id := f.seedAccount("alice", "")
	other := f.seedAccount("bob", "")
	gc, err := model.NewGiftCode("gc-1", "SINGLE0009", day, true, false, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = f.codes.Save(ctx, nil, gc)

	for _, acc := range []string{id, id, other} {
		if _, err := f.giftCodeUC().Redeem(ctx, acc, "SINGLE0009"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.giftCodeUC().Redemptions(ctx, id)
	if err != nil {
		t.Fatalf("Redemptions failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 attempts for the account, got %d", len(got))
	}
	outcomes := map[model.RedemptionOutcome]int{}
	for _, r := range got {
		outcomes[r.Outcome]++
	}
	if outcomes[model.RedemptionApplied] != 1 || outcomes[model.RedemptionRejectedAlreadyUsed] != 1 {
		t.Errorf("unexpected outcomes %v", outcomes)
	}

	if _, err := f.giftCodeUC().Redemptions(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for an unknown account, got %v", err)
	}
}

func TestGiftCodeUseCase_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	uc := f.giftCodeUC()
	for i := 0; i < 3; i++ {
		if _, err := uc.Create(ctx, day, false, false, ""); err != nil {
			t.Fatal(err)
		}
	}
	all, err := uc.List(ctx, 0, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 codes, got %d err=%v", len(all), err)
	}
	page, _ := uc.List(ctx, 2, 10)
	if len(page) != 1 {
		t.Errorf("expected 1 code on the second page, got %d", len(page))
	}
}
