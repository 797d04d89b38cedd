package shared

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// HTTPRequestRateLimiter paces requests against the source
type HTTPRequestRateLimiter struct {
	limiter      *rate.Limiter
	requestCount atomic.Int64
}

// NewHTTPRequestRateLimiter creates a limiter allowing requestsPerSecond with a burst of one
func NewHTTPRequestRateLimiter(requestsPerSecond float64) *HTTPRequestRateLimiter {
	return &HTTPRequestRateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Wait blocks until a request may be made or ctx is done
func (l *HTTPRequestRateLimiter) Wait(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	count := l.requestCount.Add(1)
	if waited := time.Since(start); waited > 10*time.Millisecond {
		logrus.WithFields(logrus.Fields{
			"component":     "HTTPRequestRateLimiter",
			"waited":        waited,
			"request_count": count,
		}).Debug("Enforced rate limit delay")
	}
	return nil
}
