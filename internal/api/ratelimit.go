package api

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// UserLimiter hands out one token bucket per user id. It throttles the earn
// endpoints so a looping ad callback or replayed purchase webhook cannot
// hammer the ledger.
type UserLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter

	limit rate.Limit
	burst int
}

func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	return &UserLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (ul *UserLimiter) Allow(userID string) bool {
	return ul.getLimiter(userID).Allow()
}

func (ul *UserLimiter) getLimiter(userID string) *rate.Limiter {
	ul.mu.RLock()
	limiter, exists := ul.limiters[userID]
	ul.mu.RUnlock()

	if exists {
		return limiter
	}

	ul.mu.Lock()
	defer ul.mu.Unlock()

	// Another goroutine may have created it between the two locks.
	if limiter, exists := ul.limiters[userID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(ul.limit, ul.burst)
	ul.limiters[userID] = limiter

	return limiter
}

// earnRateLimit rejects over-limit earn calls with 429 before any receipt
// or ledger work happens.
func (h *HandlerProvider) earnRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if userID != "" && !h.limiter.Allow(userID) {
			writeError(w, http.StatusTooManyRequests, "too many reward requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
