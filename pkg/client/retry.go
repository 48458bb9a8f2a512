package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	edgarRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	edgarRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edgar_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	edgarRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edgar_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the base backoff factor: the wait before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps a single backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: ten attempts
// starting at one request interval.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       10,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// withDefaults fills zero fields from DefaultRetryConfig.
func (rc RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = def.MaxAttempts
	}
	if rc.InitialBackoff <= 0 {
		rc.InitialBackoff = def.InitialBackoff
	}
	if rc.MaxBackoff <= 0 {
		rc.MaxBackoff = def.MaxBackoff
	}
	if rc.BackoffMultiplier < 1 {
		rc.BackoffMultiplier = def.BackoffMultiplier
	}
	return rc
}

// newBackOff returns the interval generator for one request: exponential
// growth from InitialBackoff with ±20% jitter, capped at MaxBackoff.
func (rc RetryConfig) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialBackoff
	b.MaxInterval = rc.MaxBackoff
	b.Multiplier = rc.BackoffMultiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0 // attempts bound the loop, not wall time
	b.Reset()
	return b
}

// retryWithBackoff runs fn until it succeeds, fails with a non-retryable
// error, or MaxAttempts is reached. Retryable failures are *TransportError
// values whose class and status qualify; any other error is returned as is.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func(attempt int) error) error {
	cfg = cfg.withDefaults()
	intervals := cfg.newBackOff()

	var lastErr *TransportError
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		var terr *TransportError
		if !errors.As(err, &terr) || !shouldRetry(terr.ErrorClass, terr.StatusCode) {
			return err
		}
		lastErr = terr

		if attempt >= cfg.MaxAttempts {
			break
		}

		wait := intervals.NextBackOff()
		edgarRetriesTotal.WithLabelValues(string(terr.ErrorClass)).Inc()
		edgarRetryBackoffSeconds.WithLabelValues(string(terr.ErrorClass)).Observe(wait.Seconds())

		logger.Warn().
			Str("url", terr.URL).
			Int("status", terr.StatusCode).
			Str("error_class", string(terr.ErrorClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	edgarRetryExhaustedTotal.WithLabelValues(string(lastErr.ErrorClass)).Inc()
	logger.Error().
		Str("url", lastErr.URL).
		Int("status", lastErr.StatusCode).
		Str("error_class", string(lastErr.ErrorClass)).
		Int("max_attempts", cfg.MaxAttempts).
		Msg("Retry attempts exhausted")

	exhausted := *lastErr
	exhausted.Attempts = cfg.MaxAttempts
	if lastErr.Err != nil {
		exhausted.Err = fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, cfg.MaxAttempts, lastErr.Err)
	} else {
		exhausted.Err = fmt.Errorf("%w after %d attempts", ErrRetryExhausted, cfg.MaxAttempts)
	}
	return &exhausted
}
