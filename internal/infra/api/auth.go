package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"vpn-account-ledger/internal/infra/logging"
	"vpn-account-ledger/internal/infra/metrics"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

const tokenIssuer = "vpn-account-ledger"

// AccountClaims identifies an account by the token subject.
type AccountClaims struct {
	jwt.RegisteredClaims
}

// TokenManager mints and verifies HS256 account tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint returns a signed token for accountID and its expiry.
func (m *TokenManager) Mint(accountID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies tok and returns the account ID it was minted for.
func (m *TokenManager) Parse(tok string) (string, error) {
	claims := &AccountClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", errInvalidToken
	}
	return claims.Subject, nil
}

func bearerToken(r *http.Request) (string, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(hdr, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// requireAccount admits requests carrying a valid account token and stores
// the account ID in the request context.
func (s *Server) requireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearerToken(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		}
		accountID, err := s.tokens.Parse(tok)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
			return
		}
		ctx := logging.WithAccountID(r.Context(), accountID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin checks the static admin API key.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			metrics.IncAdminRequest("forbidden")
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		tok, err := bearerToken(r)
		if err != nil {
			metrics.IncAdminRequest("unauthorized")
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(tok), []byte(s.adminKey)) != 1 {
			metrics.IncAdminRequest("forbidden")
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		metrics.IncAdminRequest("authorized")
		next.ServeHTTP(w, r)
	})
}
