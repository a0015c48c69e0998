package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jpillora/backoff"
	"github.com/stretchr/testify/require"
)

func fixedBackoff(d time.Duration) *backoff.Backoff {
	return &backoff.Backoff{Min: d, Max: d}
}

func TestQuoteWithRetry_SucceedsMidway(t *testing.T) {
	calls := 0
	value, err := quoteWithRetry(context.Background(), 3, fixedBackoff(time.Millisecond), func() (float64, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("temporarily down")
		}
		return 1.0750, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1.0750, value)
	require.Equal(t, 2, calls)
}

func TestQuoteWithRetry_ExhaustsAttempts(t *testing.T) {
	wantErr := errors.New("still down")
	calls := 0

	start := time.Now()
	_, err := quoteWithRetry(context.Background(), 3, fixedBackoff(50*time.Millisecond), func() (float64, error) {
		calls++
		return 0, wantErr
	})
	elapsed := time.Since(start)

	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, calls)
	// Two sleeps between three attempts, none after the last one.
	require.Less(t, elapsed, 130*time.Millisecond, "trailing backoff after the final attempt")
}

func TestQuoteWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := quoteWithRetry(ctx, 3, fixedBackoff(time.Millisecond), func() (float64, error) {
		return 0, errors.New("down")
	})
	require.ErrorIs(t, err, context.Canceled)
}
