package api

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Allow() bool
}

// retryHinter is implemented by limiters that can estimate when the next
// request would be admitted.
type retryHinter interface {
	RetryAfter() int
}

// tokenBucket admits requests from a golang.org/x/time/rate bucket. A nil
// bucket admits everything.
type tokenBucket struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) *tokenBucket {
	return &tokenBucket{
		limiter: rate.NewLimiter(rate.Limit(max(ratePerSecond, 1e-3)), max(burst, 1)),
	}
}

func (b *tokenBucket) Allow() bool {
	if b == nil || b.limiter == nil {
		return true
	}
	return b.limiter.Allow()
}

// RetryAfter returns the whole seconds one token takes to refill.
func (b *tokenBucket) RetryAfter() int {
	if b == nil || b.limiter == nil || b.limiter.Limit() <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(1/float64(b.limiter.Limit()))))
}

func rateLimitMiddleware(limiter rateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter.Allow() {
			next.ServeHTTP(w, r)
			return
		}
		if hinter, ok := limiter.(retryHinter); ok {
			w.Header().Set("Retry-After", strconv.Itoa(hinter.RetryAfter()))
		}
		writeError(w, http.StatusTooManyRequests, "Too many requests", "admin API rate limit exceeded",
			"Retry shortly or raise Server:RateLimit:RPS")
	})
}
