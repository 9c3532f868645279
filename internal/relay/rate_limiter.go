// Package relay implements per-connection throttling that protects the hub
// from clients flooding it with frames.
package relay

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter allows burst frames per interval, refilled continuously.
func newRateLimiter(burst int, interval time.Duration) *rate.Limiter {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	limit := rate.Limit(float64(burst) / interval.Seconds())
	return rate.NewLimiter(limit, burst)
}
