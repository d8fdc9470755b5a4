package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/EBOLABOY/aeroscout/internal/core/search"
)

type contextKey string

const (
	OwnerKey       contextKey = "owner"
	CallerClassKey contextKey = "caller_class"
)

// GetOwner returns the authenticated subject, or empty for guests.
func GetOwner(ctx context.Context) string {
	v, _ := ctx.Value(OwnerKey).(string)
	return v
}

func GetCallerClass(ctx context.Context) search.CallerClass {
	if v, ok := ctx.Value(CallerClassKey).(search.CallerClass); ok {
		return v
	}
	return search.CallerAnonymous
}

// OptionalAuth resolves the caller from an optional JWT bearer token. No
// token means an anonymous caller; a present but invalid token is rejected
// so a typo never silently downgrades a user to guest access.
func OptionalAuth(jwtSecret string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		auth := ctx.Header("Authorization")
		if auth == "" {
			next(ctx)
			return
		}
		sub, err := ParseBearer(auth, jwtSecret)
		if err != nil {
			writeUnauthorized(ctx, err.Error())
			return
		}

		ctx = huma.WithValue(ctx, OwnerKey, sub)
		ctx = huma.WithValue(ctx, CallerClassKey, search.CallerAuthenticated)
		next(ctx)
	}
}

// ParseBearer extracts and verifies the subject of a bearer token. It
// returns an empty subject when no authorization header is present;
// malformed or invalid tokens are an error.
func ParseBearer(authHeader, jwtSecret string) (string, error) {
	if authHeader == "" {
		return "", nil
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("malformed authorization header")
	}
	token, err := jwt.Parse(strings.TrimPrefix(authHeader, "Bearer "), func(t *jwt.Token) (any, error) {
		return []byte(jwtSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

func writeUnauthorized(ctx huma.Context, message string) {
	ctx.SetStatus(http.StatusUnauthorized)
	ctx.SetHeader("Content-Type", "application/json")
	if _, err := ctx.BodyWriter().Write(unauthorizedBody(message)); err != nil {
		log.Warn().Err(err).Msg("writing unauthorized response failed")
	}
}

func unauthorizedBody(message string) []byte {
	body, _ := json.Marshal(map[string]string{"error": message})
	return body
}
