package webauth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintAndVerifyRoundTrip(t *testing.T) {
	svc := New("top-secret", time.Hour)
	token, err := svc.Mint("operator")
	require.NoError(t, err)

	subject, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", subject)
}

func TestDisabledWhenNoSecret(t *testing.T) {
	svc := New("", 0)
	assert.False(t, svc.Enabled())
	_, err := svc.Mint("operator")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	svc := New("secret-a", time.Hour)
	token, err := svc.Mint("operator")
	require.NoError(t, err)

	other := New("secret-b", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddlewarePassesThroughWhenDisabled(t *testing.T) {
	svc := New("", 0)
	called := false
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	svc := New("secret", time.Hour)
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	svc := New("secret", time.Hour)
	token, err := svc.Mint("operator")
	require.NoError(t, err)

	called := false
	h := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, called)
}
