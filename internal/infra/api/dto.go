package api

import (
	"time"

	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/usecase"
)

type accountResponse struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email,omitempty"`
	Expiration        *time.Time `json:"expiration"`
	TrialPeriodsGiven int        `json:"trial_periods_given"`
	CreatedAt         time.Time  `json:"created_at"`
}

func toAccount(a *model.Account) accountResponse {
	return accountResponse{
		ID:                a.ID,
		Username:          a.Username,
		Email:             a.Email,
		Expiration:        a.Expiration,
		TrialPeriodsGiven: a.TrialPeriodsGiven,
		CreatedAt:         a.CreatedAt,
	}
}

type signupResponse struct {
	Account        accountResponse `json:"account"`
	Token          string          `json:"token"`
	TokenExpiresAt time.Time       `json:"token_expires_at"`
}

type statusResponse struct {
	AccountID             string                `json:"account_id"`
	Expiration            *time.Time            `json:"expiration"`
	TimeLeftSeconds       int64                 `json:"time_left_seconds"`
	TimeLeft              string                `json:"time_left"`
	IsPaid                bool                  `json:"is_paid"`
	RemainingTrialPeriods int                   `json:"remaining_trial_periods"`
	CanHaveTrial          bool                  `json:"can_have_trial"`
	ActiveSubscription    *subscriptionResponse `json:"active_subscription,omitempty"`
}

func toStatus(st *model.AccountStatus) statusResponse {
	out := statusResponse{
		AccountID:             st.AccountID,
		Expiration:            st.Expiration,
		TimeLeftSeconds:       int64(st.TimeLeft / time.Second),
		TimeLeft:              usecase.FormatRemaining(st.TimeLeft),
		IsPaid:                st.IsPaid,
		RemainingTrialPeriods: st.RemainingTrialPeriods,
		CanHaveTrial:          st.CanHaveTrial,
	}
	if st.ActiveSubscription != nil {
		s := toSubscription(st.ActiveSubscription)
		out.ActiveSubscription = &s
	}
	return out
}

type giftCodeRequest struct {
	Days      int    `json:"days" validate:"gte=0,lte=3650"`
	Hours     int    `json:"hours" validate:"gte=0,lte=8760"`
	SingleUse bool   `json:"single_use"`
	FreeOnly  bool   `json:"free_only"`
	Comment   string `json:"comment" validate:"max=255"`
}

func (r giftCodeRequest) duration() time.Duration {
	return time.Duration(r.Days)*24*time.Hour + time.Duration(r.Hours)*time.Hour
}

type giftCodeResponse struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	TimeSeconds int64     `json:"time_seconds"`
	SingleUse   bool      `json:"single_use"`
	FreeOnly    bool      `json:"free_only"`
	Available   bool      `json:"available"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toGiftCode(g *model.GiftCode) giftCodeResponse {
	return giftCodeResponse{
		ID:          g.ID,
		Code:        g.Code,
		TimeSeconds: int64(g.Time / time.Second),
		SingleUse:   g.SingleUse,
		FreeOnly:    g.FreeOnly,
		Available:   g.Available,
		Comment:     g.Comment,
		CreatedAt:   g.CreatedAt,
	}
}

type redemptionResponse struct {
	ID                 string    `json:"id"`
	GiftCodeID         string    `json:"gift_code_id"`
	Outcome            string    `json:"outcome"`
	TimeGrantedSeconds int64     `json:"time_granted_seconds"`
	CreatedAt          time.Time `json:"created_at"`
}

func toRedemption(r *model.GiftCodeRedemption) redemptionResponse {
	return redemptionResponse{
		ID:                 r.ID,
		GiftCodeID:         r.GiftCodeID,
		Outcome:            string(r.Outcome),
		TimeGrantedSeconds: int64(r.TimeGranted / time.Second),
		CreatedAt:          r.CreatedAt,
	}
}

type paymentRequest struct {
	AccountID      string `json:"account_id" validate:"required"`
	SubscriptionID string `json:"subscription_id"`
	Backend        string `json:"backend" validate:"required"`
	Amount         int64  `json:"amount" validate:"gt=0"`
	Currency       string `json:"currency" validate:"omitempty,len=3,alpha"`
	Days           int    `json:"days" validate:"gt=0,lte=3650"`
	BackendExtID   string `json:"backend_ext_id" validate:"max=255"`
}

type paymentResponse struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	SubscriptionID *string    `json:"subscription_id,omitempty"`
	Backend        string     `json:"backend"`
	Status         string     `json:"status"`
	Amount         int64      `json:"amount"`
	PaidAmount     int64      `json:"paid_amount"`
	Currency       string     `json:"currency"`
	TimeSeconds    int64      `json:"time_seconds"`
	BackendExtID   string     `json:"backend_ext_id,omitempty"`
	StatusMessage  string     `json:"status_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
}

func toPayment(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:             p.ID,
		AccountID:      p.AccountID,
		SubscriptionID: p.SubscriptionID,
		Backend:        string(p.Backend),
		Status:         string(p.Status),
		Amount:         p.Amount,
		PaidAmount:     p.PaidAmount,
		Currency:       p.Currency,
		TimeSeconds:    int64(p.Time / time.Second),
		BackendExtID:   p.BackendExtID,
		StatusMessage:  p.StatusMessage,
		CreatedAt:      p.CreatedAt,
		ConfirmedAt:    p.ConfirmedAt,
	}
}

type subscriptionRequest struct {
	AccountID    string `json:"account_id" validate:"required"`
	Backend      string `json:"backend" validate:"required"`
	Period       string `json:"period" validate:"required,oneof=3m 6m 12m"`
	BackendExtID string `json:"backend_ext_id" validate:"max=255"`
}

type subscriptionResponse struct {
	ID                   string     `json:"id"`
	AccountID            string     `json:"account_id"`
	Backend              string     `json:"backend"`
	Period               string     `json:"period"`
	Status               string     `json:"status"`
	LastConfirmedPayment *time.Time `json:"last_confirmed_payment,omitempty"`
	NextPaymentDate      *time.Time `json:"next_payment_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

func toSubscription(s *model.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                   s.ID,
		AccountID:            s.AccountID,
		Backend:              string(s.Backend),
		Period:               string(s.Period),
		Status:               string(s.Status),
		LastConfirmedPayment: s.LastConfirmedPayment,
		NextPaymentDate:      s.NextPaymentDate(),
		CreatedAt:            s.CreatedAt,
	}
}
