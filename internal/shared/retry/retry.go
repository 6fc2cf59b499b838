// Package retry runs upstream calls with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"time"

	apperr "github.com/reshetovitsme/streamer-census/internal/shared/errors"
)

// Config controls retry behavior.
type Config struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
	// Logger receives retry notices; nil means slog.Default.
	Logger *slog.Logger
}

// Default suits YouTube Data API calls.
var Default = Config{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// Do calls fn until it succeeds, returns a non-retryable error, or MaxRetries
// extra attempts have been spent. Quota errors are never retried here; the
// caller rotates credentials instead.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		if attempt < cfg.MaxRetries {
			wait := backoff(cfg, attempt)
			logger.Debug("retrying upstream call", "attempt", attempt+1, "wait", wait, "error", err)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

func backoff(cfg Config, attempt int) time.Duration {
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := time.Duration(float64(cfg.InitialWait) * math.Pow(mult, float64(attempt)))
	if cfg.MaxWait > 0 && wait > cfg.MaxWait {
		wait = cfg.MaxWait
	}
	return wait
}

// IsRetryable reports whether err is transient: an explicit
// ErrUpstreamTransient, a connection failure, or a network timeout.
func IsRetryable(err error) bool {
	if errors.Is(err, apperr.ErrQuotaExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, apperr.ErrUpstreamTransient) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryableStatus returns true for HTTP status codes worth retrying.
func IsRetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
