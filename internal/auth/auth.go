// Package auth validates the HS256 bearer tokens issued to club staff and
// exposes the caller's capabilities to handlers through the request context.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Capabilities recognized in token claims. Most routes only require a valid
// token; destructive operations check a specific capability.
const (
	CapPaymentsDelete     = "payments:delete"
	CapTransactionsDelete = "transactions:delete"
)

type Claims struct {
	Subject      string   `json:"sub"`
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	Subject      string
	Capabilities []string
}

func (p *Principal) Can(capability string) bool {
	return p != nil && slices.Contains(p.Capabilities, capability)
}

type contextKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func PrincipalFrom(ctx context.Context) *Principal {
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}

// GenerateToken issues a signed token, used by the admin CLI and by tests.
func GenerateToken(secret, subject string, capabilities []string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Subject:      subject,
		Capabilities: capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates signature and expiry and returns the caller.
func ParseToken(secret, tokenStr string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &Principal{Subject: claims.Subject, Capabilities: claims.Capabilities}, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// principal in the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				http.Error(w, "authorization header must be 'Bearer <token>'", http.StatusUnauthorized)
				return
			}

			principal, err := ParseToken(secret, parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}
