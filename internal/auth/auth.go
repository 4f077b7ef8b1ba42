// Package auth verifies the identity provider's JWTs and exposes the
// signed-in user id through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotAuthenticated = errors.New("not authenticated")

type ctxKeyUserID struct{}

type Verifier struct {
	secret   []byte
	audience string
	issuer   string
}

func NewVerifier(secret, audience, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), audience: audience, issuer: issuer}
}

// VerifyToken parses a signed token and returns its subject.
func (v *Verifier) VerifyToken(raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", ErrNotAuthenticated
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNotAuthenticated
	}
	return sub, nil
}

// Identify resolves the request's identity, if any. An empty user id means
// the caller is signed out; that alone is not an error.
func (v *Verifier) Identify(r *http.Request) string {
	tok := tokenFromRequest(r)
	if tok == "" {
		return ""
	}
	sub, err := v.VerifyToken(tok)
	if err != nil {
		return ""
	}
	return sub
}

// Middleware attaches the verified user id to the context when a valid token
// is present. It does not reject unauthenticated requests; read-only routes
// stay usable while signed out and mutation handlers check for themselves.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sub := v.Identify(r); sub != "" {
			r = r.WithContext(WithUserID(r.Context(), sub))
		}
		next.ServeHTTP(w, r)
	})
}

func tokenFromRequest(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	// Cookie fallback for browser requests.
	if cookie, err := r.Cookie("access_token"); err == nil {
		return cookie.Value
	}
	return ""
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID{}, id)
}

func UserID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID{}).(string); ok {
		return v
	}
	return ""
}
