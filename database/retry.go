package database

import (
	"context"
	"math"
	"time"

	"github.com/fenilmodi00/ipo-catalog/shared"
	"github.com/sirupsen/logrus"
)

// RetryConfig controls exponential backoff of transient database failures
type RetryConfig struct {
	MaxRetries    int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig returns the retry policy used by the repository
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// ExecuteWithRetry executes a database operation with exponential backoff retry.
// Only errors classified retryable by shared.IsRetryableError are retried.
func ExecuteWithRetry(ctx context.Context, cfg RetryConfig, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(cfg.BackoffFactor, float64(attempt-1)))
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}

			logrus.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
				"error":   lastErr,
			}).Warn("Retrying database operation")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := operation()
		if err == nil {
			if attempt > 0 {
				logrus.WithField("attempt", attempt).Info("Database operation succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !shared.IsRetryableError(err) {
			return err
		}
	}

	logrus.WithFields(logrus.Fields{
		"max_retries": cfg.MaxRetries,
		"final_error": lastErr,
	}).Error("Database operation failed after all retries")

	return lastErr
}
