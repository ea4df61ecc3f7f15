package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/textsnap/batch-ocr-service/internal/models"
)

// Claims carried by API tokens
type Claims struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	jwt.RegisteredClaims
}

type contextKey string

const claimsKey contextKey = "claims"

var (
	jwtSecret []byte
	tokenTTL  time.Duration
	clients   []models.APIClient
)

// Init loads the signing secret, token lifetime and the API client
// registry. JWT_SECRET overrides the configured secret.
func Init(cfg models.AuthConfig) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = cfg.JWTSecret
	}
	if secret == "" {
		return errors.New("jwt secret not configured (set auth.jwt_secret or JWT_SECRET)")
	}
	jwtSecret = []byte(secret)

	ttlHours := cfg.TokenTTLHours
	if ttlHours <= 0 {
		ttlHours = 24
	}
	tokenTTL = time.Duration(ttlHours) * time.Hour

	clients = cfg.Clients
	return nil
}

// GenerateToken issues a signed token for an API client
func GenerateToken(clientID, clientName string) (string, error) {
	now := time.Now()
	claims := &Claims{
		ClientID:   clientID,
		ClientName: clientName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken validates a token string and returns its claims
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetClaimsFromContext returns the claims stored by JWTMiddleware
func GetClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	if !ok {
		return nil, errors.New("no claims in context")
	}
	return claims, nil
}

// JWTMiddleware protects the JSON API. The web pages, downloads and the
// health check pass through; /api/login stays open so tokens can be
// issued at all.
func JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if !strings.HasPrefix(path, "/api/") || path == "/api/login" {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}

		claims, err := ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// findClient looks a registered API client up by ID
func findClient(id string) (models.APIClient, bool) {
	for _, c := range clients {
		if c.ID == id {
			return c, true
		}
	}
	return models.APIClient{}, false
}
