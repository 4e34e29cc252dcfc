package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func runAuth(t *testing.T, auth *Authenticator, header string) int {
	t.Helper()
	handler := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodPost, "/admin", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAuthenticatorAcceptsValidToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: "secret", Issuer: "prizepool"})
	token := signToken(t, "secret", jwt.MapClaims{
		"iss": "prizepool",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusNoContent, runAuth(t, auth, "Bearer "+token))
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{HMACSecret: "secret", Issuer: "prizepool"})

	require.Equal(t, http.StatusUnauthorized, runAuth(t, auth, ""))

	wrongSecret := signToken(t, "other", jwt.MapClaims{
		"iss": "prizepool",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusUnauthorized, runAuth(t, auth, "Bearer "+wrongSecret))

	expired := signToken(t, "secret", jwt.MapClaims{
		"iss": "prizepool",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	require.Equal(t, http.StatusUnauthorized, runAuth(t, auth, "Bearer "+expired))

	wrongIssuer := signToken(t, "secret", jwt.MapClaims{
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.Equal(t, http.StatusUnauthorized, runAuth(t, auth, "Bearer "+wrongIssuer))
}

func TestAuthenticatorWithoutSecretLocksAdmin(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{})
	token := signToken(t, "anything", jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	require.Equal(t, http.StatusForbidden, runAuth(t, auth, "Bearer "+token))
}
