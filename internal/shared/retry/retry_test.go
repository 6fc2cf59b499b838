package retry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	apperr "github.com/reshetovitsme/streamer-census/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fast = Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond, Multiplier: 2}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fast, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, fmt.Errorf("status 503: %w", apperr.ErrUpstreamTransient)
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fast, func(context.Context) (string, error) {
		calls++
		return "", apperr.ErrUpstreamTransient
	})
	require.ErrorIs(t, err, apperr.ErrUpstreamTransient)
	assert.Equal(t, fast.MaxRetries+1, calls)
}

func TestDo_LogsThroughConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := fast
	cfg.MaxRetries = 1
	cfg.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, apperr.ErrUpstreamTransient
	})
	require.ErrorIs(t, err, apperr.ErrUpstreamTransient)
	assert.Contains(t, buf.String(), "retrying upstream call")
	assert.Contains(t, buf.String(), "attempt=1")
}

func TestDo_DoesNotRetryQuotaOrPlainErrors(t *testing.T) {
	for _, want := range []error{apperr.ErrQuotaExceeded, errors.New("bad request")} {
		calls := 0
		_, err := Do(context.Background(), fast, func(context.Context) (int, error) {
			calls++
			return 0, want
		})
		require.ErrorIs(t, err, want)
		assert.Equal(t, 1, calls)
	}
}

func TestDo_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, fast, func(context.Context) (int, error) {
		t.Fatal("fn must not run")
		return 0, nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(code), code)
	}
	for _, code := range []int{200, 400, 403, 404} {
		assert.False(t, IsRetryableStatus(code), code)
	}
}
