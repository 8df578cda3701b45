package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/domain/model"
	"vpn-account-ledger/internal/usecase"

	"github.com/go-chi/chi/v5"
)

func (s *Server) createGiftCode(w http.ResponseWriter, r *http.Request) {
	var req giftCodeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	gc, err := s.svc.GiftCodes.Create(r.Context(), req.duration(), req.SingleUse, req.FreeOnly, req.Comment)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGiftCode(gc))
}

func (s *Server) listGiftCodes(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := s.svc.GiftCodes.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	items := make([]giftCodeResponse, 0, len(list))
	for _, gc := range list {
		items = append(items, toGiftCode(gc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type availabilityRequest struct {
	Available *bool `json:"available"`
}

func (s *Server) setGiftCodeAvailable(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decode(w, r, &req); err != nil || req.Available == nil {
		writeError(w, r, s.log, domain.ErrInvalidArgument)
		return
	}
	gc, err := s.svc.GiftCodes.SetAvailable(r.Context(), chi.URLParam(r, "code"), *req.Available)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toGiftCode(gc))
}

// Bounds keep the total well inside time.Duration.
type paidTimeRequest struct {
	Days  int `json:"days" validate:"gte=0,lte=3650"`
	Hours int `json:"hours" validate:"gte=0,lte=8760"`
}

func (r paidTimeRequest) duration() time.Duration {
	return time.Duration(r.Days)*24*time.Hour + time.Duration(r.Hours)*time.Hour
}

// addPaidTime is the manual credit used by support staff.
func (s *Server) addPaidTime(w http.ResponseWriter, r *http.Request) {
	var req paidTimeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	acc, err := s.svc.Accounts.AddPaidTime(r.Context(), chi.URLParam(r, "id"), req.duration())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccount(acc))
}

// accountRedemptions lists every gift code attempt of an account for support staff.
func (s *Server) accountRedemptions(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.GiftCodes.Redemptions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	items := make([]redemptionResponse, 0, len(list))
	for _, red := range list {
		items = append(items, toRedemption(red))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	p, err := s.svc.Payments.Create(r.Context(), usecase.CreatePaymentInput{
		AccountID:      req.AccountID,
		SubscriptionID: req.SubscriptionID,
		Backend:        model.Backend(strings.ToLower(req.Backend)),
		Amount:         req.Amount,
		Currency:       req.Currency,
		Time:           time.Duration(req.Days) * 24 * time.Hour,
		BackendExtID:   req.BackendExtID,
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPayment(p))
}

type confirmRequest struct {
	PaidAmount   int64  `json:"paid_amount" validate:"gte=0"`
	BackendExtID string `json:"backend_ext_id" validate:"max=255"`
}

func (s *Server) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	p, err := s.svc.Payments.Confirm(r.Context(), chi.URLParam(r, "id"), req.PaidAmount, req.BackendExtID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}

type reasonRequest struct {
	Reason string `json:"reason" validate:"max=255"`
}

func (s *Server) cancelPayment(w http.ResponseWriter, r *http.Request) {
	s.finishPayment(w, r, s.svc.Payments.Cancel)
}

func (s *Server) rejectPayment(w http.ResponseWriter, r *http.Request) {
	s.finishPayment(w, r, s.svc.Payments.Reject)
}

func (s *Server) finishPayment(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, reason string) (*model.Payment, error)) {
	var req reasonRequest
	if !s.decodeOptional(w, r, &req) {
		return
	}
	p, err := fn(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayment(p))
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	sub, err := s.svc.Subscriptions.Create(r.Context(), req.AccountID,
		model.Backend(strings.ToLower(req.Backend)), model.SubscriptionPeriod(req.Period), req.BackendExtID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubscription(sub))
}

func (s *Server) activateSubscription(w http.ResponseWriter, r *http.Request) {
	s.transitionSubscription(w, r, s.svc.Subscriptions.Activate)
}

func (s *Server) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	s.transitionSubscription(w, r, s.svc.Subscriptions.Cancel)
}

func (s *Server) transitionSubscription(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*model.Subscription, error)) {
	sub, err := fn(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubscription(sub))
}

func (s *Server) subscriptionStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.svc.Subscriptions.CountByStatus(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runExpireNotify(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sweeper == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "sweeper not configured"})
		return
	}
	sent, err := s.svc.Sweeper.RunOnce(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

// decodeOptional accepts an empty body. It writes the error response and
// returns false on malformed input.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := decode(w, r, v); err != nil {
		writeError(w, r, s.log, err)
		return false
	}
	return true
}
