package api

import (
	"context"
	"net/http"
	"time"

	"vpn-account-ledger/internal/config"
	"vpn-account-ledger/internal/infra/metrics"
	"vpn-account-ledger/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Sweeper runs one expiration notification sweep.
type Sweeper interface {
	RunOnce(ctx context.Context) (int, error)
}

// Limiter bounds attempts per key within a window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Services groups the use cases served over HTTP.
type Services struct {
	Accounts      usecase.AccountUseCase
	GiftCodes     usecase.GiftCodeUseCase
	Payments      usecase.PaymentUseCase
	Subscriptions usecase.SubscriptionUseCase
	Sweeper       Sweeper
}

type Server struct {
	svc      Services
	tokens   *TokenManager
	limiter  Limiter
	rate     config.RateLimitConfig
	adminKey string
	origins  []string
	timeout  time.Duration
	log      *zerolog.Logger
}

// NewServer builds the HTTP layer. A nil limiter disables redemption rate limiting.
func NewServer(svc Services, tokens *TokenManager, limiter Limiter, cfg *config.Config, logger *zerolog.Logger) *Server {
	compLog := logger.With().Str("component", "api").Logger()
	timeout := cfg.HTTP.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Server{
		svc:      svc,
		tokens:   tokens,
		limiter:  limiter,
		rate:     cfg.RateLimit,
		adminKey: cfg.Security.AdminAPIKey,
		origins:  cfg.HTTP.AllowedOrigins,
		timeout:  timeout,
		log:      &compLog,
	}
}

// Router returns the chi mux with every route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", traceHeader},
			ExposedHeaders: []string{traceHeader},
			MaxAge:         300,
		}))
	}
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.timeout))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/accounts", s.signup)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAccount)
			r.Get("/accounts/me", s.accountStatus)
			r.Post("/accounts/me/trial", s.giveTrial)
			r.Post("/accounts/me/gift-code", s.redeemGiftCode)
			r.Get("/accounts/me/payments", s.accountPayments)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Post("/gift-codes", s.createGiftCode)
			r.Get("/gift-codes", s.listGiftCodes)
			r.Patch("/gift-codes/{code}", s.setGiftCodeAvailable)

			r.Post("/accounts/{id}/paid-time", s.addPaidTime)
			r.Get("/accounts/{id}/redemptions", s.accountRedemptions)

			r.Post("/payments", s.createPayment)
			r.Post("/payments/{id}/confirm", s.confirmPayment)
			r.Post("/payments/{id}/cancel", s.cancelPayment)
			r.Post("/payments/{id}/reject", s.rejectPayment)

			r.Post("/subscriptions", s.createSubscription)
			r.Get("/subscriptions/stats", s.subscriptionStats)
			r.Post("/subscriptions/{id}/activate", s.activateSubscription)
			r.Post("/subscriptions/{id}/cancel", s.cancelSubscription)

			r.Post("/expire-notify", s.runExpireNotify)
		})
	})
	return r
}
