package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"buzzline/infrastructure/cache"
	"buzzline/internal/usecase"
)

type contextKey string

const UserContextKey contextKey = "user"

type AuthMiddleware struct {
	authUc usecase.AuthUsecase
}

func NewAuthMiddleware(authUc usecase.AuthUsecase) *AuthMiddleware {
	return &AuthMiddleware{
		authUc: authUc,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, Response{Message: "authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, Response{Message: "invalid authorization header format"})
			return
		}

		claims, err := m.authUc.ValidateAccessToken(parts[1])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, Response{Message: "invalid or expired token"})
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimiter enforces a fixed-window per-client request cap. Authenticated
// requests are keyed by user id, anonymous ones by remote address.
type RateLimiter struct {
	cache  *cache.MemCache
	limit  int64
	window time.Duration
}

func NewRateLimiter(c *cache.MemCache, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cache:  c,
		limit:  limit,
		window: window,
	}
}

func (m *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ratelimit:" + clientKey(r)
		if m.cache.Increment(key, 1, m.window) > m.limit {
			writeJSON(w, http.StatusTooManyRequests, Response{Message: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if userId := currentUserId(r); userId != "" {
		return fmt.Sprintf("user:%s", userId)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return fmt.Sprintf("ip:%s", host)
}
