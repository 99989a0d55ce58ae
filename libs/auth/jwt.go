package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/glowbook/clinicavail/libs/httpx"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingToken  = errors.New("missing token")
	ErrMissingTenant = errors.New("token carries no tenant")
)

// Claims is the caller identity issued by the console's auth layer.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func SignHS256(claims Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseAndVerifyHS256(token, secret string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Verifier resolves tenant context from a bearer token or the session cookie.
type Verifier struct {
	Secret     string
	CookieName string
}

func (v Verifier) tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if v.CookieName != "" {
		if c, err := r.Cookie(v.CookieName); err == nil {
			return strings.TrimSpace(c.Value)
		}
	}
	return ""
}

// Resolve returns the verified claims for the request.
func (v Verifier) Resolve(r *http.Request) (*Claims, error) {
	token := v.tokenFromRequest(r)
	if token == "" {
		return nil, ErrMissingToken
	}
	claims, err := ParseAndVerifyHS256(token, v.Secret)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.TenantID) == "" {
		return nil, ErrMissingTenant
	}
	return claims, nil
}

// RequireTenant rejects unauthenticated requests and stores the tenant id in the request context.
func (v Verifier) RequireTenant() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := v.Resolve(r)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := httpx.ContextWithTenantID(r.Context(), claims.TenantID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
