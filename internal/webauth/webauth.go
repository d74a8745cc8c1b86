// Package webauth implements the HTTP bearer-token boundary named in
// §6 (OSA_REQUIRE_AUTH / OSA_SHARED_SECRET): a single shared secret
// signs and verifies short-lived HS256 tokens, grounded on the
// teacher's internal/auth.JWTService but trimmed from its
// multi-user/API-key shape down to this single-operator runtime's one
// shared secret.
package webauth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrAuthDisabled is returned by Mint/Verify when no secret is
	// configured (auth off).
	ErrAuthDisabled = errors.New("webauth: auth disabled")
	// ErrInvalidToken is returned by Verify for any malformed, expired,
	// or wrongly-signed token.
	ErrInvalidToken = errors.New("webauth: invalid token")
)

const defaultTokenTTL = 24 * time.Hour

// Claims is the payload minted into every token; Subject names the
// caller (typically "operator" or a CLI-provided identity string).
type Claims struct {
	jwt.RegisteredClaims
}

// Service mints and verifies bearer tokens against one shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
}

// New builds a Service. An empty secret disables both Mint and Verify
// (every call returns ErrAuthDisabled), matching OSA_REQUIRE_AUTH=false.
func New(sharedSecret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &Service{secret: []byte(sharedSecret), ttl: ttl}
}

// Enabled reports whether a secret is configured.
func (s *Service) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Mint issues a signed token for subject.
func (s *Service) Mint(subject string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a bearer token, returning its subject.
func (s *Service) Verify(token string) (string, error) {
	if !s.Enabled() {
		return "", ErrAuthDisabled
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware rejects requests missing a valid "Authorization: Bearer
// <token>" header. It is a no-op pass-through when auth is disabled
// (§6 "OSA_REQUIRE_AUTH defaults to false").
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := s.Verify(token); err != nil {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
