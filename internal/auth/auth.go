// Package auth resolves the owner of a request from a BaaS-issued JWT.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// CookieName is checked when no Authorization header is present, which is how
// the HTMX pages carry the session.
const CookieName = "financas_token"

// Claims are the fields financas reads from the token. Subject is the owner id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier checks HS256 tokens. With an empty secret every request resolves
// to the dev owner.
type Verifier struct {
	secret   []byte
	issuer   string
	devOwner string
}

func NewVerifier(secret, issuer, devOwner string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, devOwner: devOwner}
}

// DevMode reports whether tokens are ignored.
func (v *Verifier) DevMode() bool {
	return len(v.secret) == 0
}

// Verify parses tokenString and returns the subject.
func (v *Verifier) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Issue signs a token for ownerID. finctl and tests use it; production tokens
// come from the auth provider.
func (v *Verifier) Issue(ownerID string, ttl time.Duration) (string, error) {
	if v.DevMode() {
		return "", errors.New("no signing secret configured")
	}
	now := time.Now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   ownerID,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// OwnerFromRequest reads the bearer header, then the session cookie.
func (v *Verifier) OwnerFromRequest(r *http.Request) (string, error) {
	if v.DevMode() {
		if v.devOwner == "" {
			return "", ErrMissingToken
		}
		return v.devOwner, nil
	}
	tok := extractToken(r)
	if tok == "" {
		return "", ErrMissingToken
	}
	return v.Verify(tok)
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Fields(h)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}

type ctxKey struct{}

func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ownerID)
}

// OwnerID returns the owner set by Middleware.
func OwnerID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Middleware rejects unauthenticated requests through onFail.
func (v *Verifier) Middleware(onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, err := v.OwnerFromRequest(r)
			if err != nil {
				if onFail != nil {
					onFail(w, r, err)
				} else {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
