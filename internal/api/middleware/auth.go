package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const adminRole = "admin"

type adminContextKey struct{}

// AdminClaims are the claims read from a hosted-auth access token
type AdminClaims struct {
	Email       string         `json:"email"`
	Role        string         `json:"role"`
	AppMetadata map[string]any `json:"app_metadata"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims grant the back office. adminEmails must be lower case.
func (c *AdminClaims) IsAdmin(adminEmails []string) bool {
	if c.Role == adminRole {
		return true
	}
	if role, _ := c.AppMetadata["role"].(string); role == adminRole {
		return true
	}
	return c.Email != "" && slices.Contains(adminEmails, strings.ToLower(c.Email))
}

// AdminFromContext returns the claims of the authenticated admin
func AdminFromContext(ctx context.Context) (*AdminClaims, bool) {
	claims, ok := ctx.Value(adminContextKey{}).(*AdminClaims)
	return claims, ok
}

// AdminAuth verifies an HS256 bearer token and requires the admin role or
// an allow-listed email. With an empty secret every request is refused.
func AdminAuth(secret string, adminEmails []string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				deny(w, http.StatusUnauthorized, "admin access is not configured")
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				deny(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims := &AdminClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
				return key, nil
			}); err != nil {
				log.Ctx(r.Context()).Debug().Err(err).Msg("rejected admin token")
				deny(w, http.StatusUnauthorized, "invalid token")
				return
			}

			if !claims.IsAdmin(adminEmails) {
				deny(w, http.StatusForbidden, "admin role required")
				return
			}

			ctx := context.WithValue(r.Context(), adminContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
