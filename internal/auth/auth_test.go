package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reelkeep/internal/auth"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestVerifyTokenReturnsSubject(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	sub, err := v.VerifyToken(signToken(t, testSecret, "user-1"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	_, err := v.VerifyToken(signToken(t, "other-secret", "user-1"))
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.VerifyToken(raw)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestVerifyTokenRejectsMissingSubject(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	_, err := v.VerifyToken(signToken(t, testSecret, ""))
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestVerifyTokenRejectsUnsignedToken(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1"})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.VerifyToken(raw)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestVerifyTokenEnforcesAudienceWhenConfigured(t *testing.T) {
	v := auth.NewVerifier(testSecret, "reelkeep", "")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{"somewhere-else"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = v.VerifyToken(raw)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestIdentifyReadsBearerHeader(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	assert.Equal(t, "user-1", v.Identify(r))
}

func TestIdentifyFallsBackToCookie(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "access_token", Value: signToken(t, testSecret, "user-2")})
	assert.Equal(t, "user-2", v.Identify(r))
}

func TestIdentifyReturnsEmptyForAnonymousOrBadTokens(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, v.Identify(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer garbage")
	assert.Empty(t, v.Identify(r))
}

func TestMiddlewareInjectsUserIDWithoutRejecting(t *testing.T) {
	v := auth.NewVerifier(testSecret, "", "")

	var gotUser string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Signed in.
	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1"))
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUser)

	// Signed out requests pass through with no identity.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, gotUser)
}
