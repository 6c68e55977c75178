// Package accesskey issues and verifies the bearer credentials that guard
// the remote store's REST endpoints. Keys are HS256 JWTs carrying a role.
package accesskey

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type Config struct {
	Secret string
	Issuer string
}

// ConfigFromEnv reads ACCESS_KEY_SECRET and ACCESS_KEY_ISSUER.
func ConfigFromEnv() Config {
	iss := os.Getenv("ACCESS_KEY_ISSUER")
	if iss == "" {
		iss = "inventory-store"
	}
	return Config{Secret: os.Getenv("ACCESS_KEY_SECRET"), Issuer: iss}
}

var (
	ErrNoSecret   = errors.New("access key secret is empty")
	ErrMissingKey = errors.New("missing access key")
	ErrInvalidKey = errors.New("invalid access key")
)

// Claims is the payload of an access key.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	issuer string
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	return &Service{secret: []byte(cfg.Secret), issuer: cfg.Issuer}, nil
}

// Issue signs a key for role. A zero ttl yields a key without expiry.
func (s *Service) Issue(role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature, issuer and expiry.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return claims, nil
}

type ctxKey struct{}

// RoleFromContext returns the role of the verified key, if any.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ctxKey{}).(string)
	return role, ok
}

// FromRequest extracts the key from `Authorization: Bearer` or the `apikey` header.
func FromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			return "", ErrMissingKey
		}
		return strings.TrimSpace(tok), nil
	}
	if k := r.Header.Get("apikey"); k != "" {
		return k, nil
	}
	return "", ErrMissingKey
}

// Middleware rejects requests without a valid key with 401.
func (s *Service) Middleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := FromRequest(r)
			if err == nil {
				var claims *Claims
				if claims, err = s.Verify(tok); err == nil {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims.Role)))
					return
				}
			}
			logger.Debugw("access key rejected", "path", r.URL.Path, "err", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid access key"}`))
		})
	}
}
