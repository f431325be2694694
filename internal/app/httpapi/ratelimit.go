package httpapi

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/Storeline/cart_engine/pkg/logger"
)

// rateLimiter tracks one token bucket per client address.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

func newRateLimiter(requestsPerSecond, burst int, log *logger.Logger) *rateLimiter {
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *rateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Reset wholesale once the map grows unreasonably; individual entries
	// are cheap and a shopping session touches few distinct addresses.
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}

	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			key = r.RemoteAddr
		}

		if !rl.limiterFor(key).Allow() {
			rl.log.WithField("client", key).
				WithField("path", r.URL.Path).
				Warn("rate limit exceeded")
			writeError(w, http.StatusTooManyRequests, errors.New("too many requests"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
