package api

import (
	"net/http"
	"strings"

	"vpn-account-ledger/internal/domain"
	"vpn-account-ledger/internal/infra/logging"
	red "vpn-account-ledger/internal/infra/redis"
)

type signupRequest struct {
	Username   string `json:"username" validate:"required,max=64"`
	Email      string `json:"email" validate:"omitempty,email,max=254"`
	ReferrerID string `json:"referrer_id" validate:"max=64"`
}

// signup creates an account and returns its bearer token. The referrer may
// also come from the ?ref= query parameter of a shared link.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if req.ReferrerID == "" {
		req.ReferrerID = r.URL.Query().Get("ref")
	}

	acc, err := s.svc.Accounts.Signup(r.Context(), req.Username, req.Email, req.ReferrerID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	tok, exp, err := s.tokens.Mint(acc.ID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, signupResponse{Account: toAccount(acc), Token: tok, TokenExpiresAt: exp})
}

func (s *Server) accountStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := logging.AccountIDFrom(r.Context())
	s.renderStatus(w, r, id)
}

func (s *Server) giveTrial(w http.ResponseWriter, r *http.Request) {
	id, _ := logging.AccountIDFrom(r.Context())
	if _, err := s.svc.Accounts.GiveTrialPeriod(r.Context(), id); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.renderStatus(w, r, id)
}

type redeemRequest struct {
	Code string `json:"code" validate:"required,max=32"`
}

// redeemGiftCode answers every accepted code with the account status, whether
// or not time was granted.
func (s *Server) redeemGiftCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, _ := logging.AccountIDFrom(ctx)

	var req redeemRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, r, s.log, domain.ErrInvalidArgument)
		return
	}

	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, red.GiftCodeAttemptKey(id), s.rate.GiftCodeAttempts, s.rate.GiftCodeWindow)
		if err != nil {
			l := logging.With(ctx, s.log)
			l.Warn().Err(err).Msg("rate limiter unavailable")
		} else if !ok {
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many attempts"})
			return
		}
	}

	if _, err := s.svc.GiftCodes.Redeem(ctx, id, code); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.renderStatus(w, r, id)
}

func (s *Server) accountPayments(w http.ResponseWriter, r *http.Request) {
	id, _ := logging.AccountIDFrom(r.Context())
	list, err := s.svc.Payments.ListByAccount(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	items := make([]paymentResponse, 0, len(list))
	for _, p := range list {
		items = append(items, toPayment(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, accountID string) {
	st, err := s.svc.Accounts.Status(r.Context(), accountID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatus(st))
}
