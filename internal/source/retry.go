package source

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retries of source reads with exponential backoff
// and jitter. Source databases are shared transactional systems; brief
// contention and connection drops are expected and retried, schema
// errors are not.
type RetryConfig struct {
	// MaxAttempts includes the first try. 1 means no retries.
	MaxAttempts int
	// InitialBackoff is the base delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration
	// Multiplier scales the backoff after each attempt.
	Multiplier float64
	// JitterFraction adds random jitter as a fraction of the delay.
	JitterFraction float64
}

// DefaultRetryConfig suits reads against a live transactional database.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// ReadTableWithRetry reads a table, retrying transient failures.
// Missing tables and context cancellation fail immediately.
func ReadTableWithRetry(ctx context.Context, r Reader, table string, cfg RetryConfig) (*Batch, error) {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		batch, err := r.ReadTable(ctx, table)
		if err == nil {
			return batch, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) {
			return nil, lastErr
		}
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.backoff(attempt)
		zap.L().Warn("source: read failed, retrying",
			zap.String("table", table),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
	return nil, lastErr
}

// retryable reports whether a source read error is worth retrying.
// Schema problems (missing table or column) are permanent until an
// operator intervenes.
func retryable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{
		"no such table",
		"does not exist",
		"42p01", // postgres undefined_table
		"unknown driver",
	} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 500 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

func (c RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(c.InitialBackoff) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.MaxBackoff) {
		delay = float64(c.MaxBackoff)
	}
	if c.JitterFraction > 0 {
		delay += (rand.Float64()*2 - 1) * delay * c.JitterFraction
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}
