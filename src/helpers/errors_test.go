package helpers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------

func TestBackoffDoublesAndCaps(t *testing.T) {
	base := time.Second
	max := 30 * time.Second

	assert.Equal(t, 1*time.Second, Backoff(0, base, max))
	assert.Equal(t, 2*time.Second, Backoff(1, base, max))
	assert.Equal(t, 4*time.Second, Backoff(2, base, max))
	assert.Equal(t, 16*time.Second, Backoff(4, base, max))
	assert.Equal(t, 30*time.Second, Backoff(5, base, max))
	assert.Equal(t, 30*time.Second, Backoff(20, base, max))
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff("fetch", 3, time.Millisecond, 5*time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

// -----------------------------------------------------------------------------

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff("fetch", 3, time.Millisecond, 5*time.Millisecond, func() error {
		attempts++
		return fmt.Errorf("down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

// -----------------------------------------------------------------------------

func TestErrorTypesUnwrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := NewFetchError("upstream query failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "upstream query failed")
	assert.Contains(t, err.Error(), "connection refused")

	var fetchErr *FetchError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &fetchErr))
}

// -----------------------------------------------------------------------------

func TestConfigurationErrorFormatting(t *testing.T) {
	err := NewConfigurationError("unknown resolution key '%s'", "9z")
	assert.Equal(t, "unknown resolution key '9z'", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}
