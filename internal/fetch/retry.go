package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig bounds the backoff loop around exchange calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}
}

// isRetryable separates transient network and rate-limit failures from
// errors a retry cannot fix.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, frag := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"too many requests",
		"rate limit",
		"-1001", // exchange internal error
		"-1003", // request weight exceeded
	} {
		if strings.Contains(msg, frag) {
			return true
		}
	}
	return false
}

// withRetry runs op with exponential backoff on retryable errors.
func withRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	var lastErr error
	backoff := cfg.InitialBackoff

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("fetch aborted: %w", err)
		}

		err := op()
		if err == nil {
			if attempt > 0 {
				log.Info().Int("attempt", attempt+1).Msg("Fetch succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Fetch failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch aborted during backoff: %w", ctx.Err())
		case <-time.After(backoff):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return fmt.Errorf("fetch failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
