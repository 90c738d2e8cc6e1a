package clinicaltrials

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HeaderRetryAfter is the retry-after header (seconds).
const HeaderRetryAfter = "Retry-After"

// defaultRetryAfter is the pause applied after a 429 without Retry-After.
const defaultRetryAfter = 10 * time.Second

// RateLimiter throttles registry requests with a token bucket and honours
// Retry-After pauses announced by the server.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing rps sustained requests per second.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any pause set by RecordRateLimited.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimited pauses all callers until the server's Retry-After has passed.
func (r *RateLimiter) RecordRateLimited(resp *http.Response) {
	pause := defaultRetryAfter
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get(HeaderRetryAfter)); err == nil && secs >= 0 {
			pause = time.Duration(secs) * time.Second
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if until := time.Now().Add(pause); until.After(r.retryAt) {
		r.retryAt = until
	}
}
