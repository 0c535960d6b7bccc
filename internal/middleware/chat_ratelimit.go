package middleware

import (
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

// Per-user limits for the routes that call the language model.
const (
	ChatRate  = rate.Limit(0.5) // 30/min
	ChatBurst = 10
)

// NewChatLimiter returns the per-user bucket used by UserRateLimit on
// model-backed routes.
func NewChatLimiter() *KeyedLimiter {
	return NewKeyedLimiter(ChatRate, ChatBurst)
}

// UserRateLimit limits authenticated callers by their external id and falls
// back to the client IP. Use after Authenticate.
func UserRateLimit(l *KeyedLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + ClientIP(r)
			if id, ok := IdentityFrom(r.Context()); ok {
				key = "user:" + id.ExternalID
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Burst()))
			if !l.Allow(key) {
				w.Header().Set("X-RateLimit-Remaining", "0")
				writeError(w, http.StatusTooManyRequests, "You're sending messages too quickly. Please wait a moment.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
