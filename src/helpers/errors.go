package helpers

import (
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Distinct error types for the failure taxonomy. ConfigurationError is
// fatal to the call that raised it; the others degrade gracefully.
type ConfigurationError struct{ ObserverError }
type FetchError struct{ ObserverError }
type CacheError struct{ ObserverError }
type StreamError struct{ ObserverError }

// -----------------------------------------------------------------------------

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{ObserverError{Message: fmt.Sprintf(format, args...)}}
}

func NewFetchError(msg string, cause error) *FetchError {
	return &FetchError{ObserverError{Message: msg, Cause: cause}}
}

func NewCacheError(msg string, cause error) *CacheError {
	return &CacheError{ObserverError{Message: msg, Cause: cause}}
}

func NewStreamError(msg string, cause error) *StreamError {
	return &StreamError{ObserverError{Message: msg, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// Backoff returns the delay before the given attempt (0-based): baseDelay
// doubled per attempt, capped at maxDelay.
func Backoff(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	delay := baseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// -----------------------------------------------------------------------------

// RetryWithBackoff attempts the operation up to maxRetries times with capped
// exponential backoff between attempts.
func RetryWithBackoff(operation string, maxRetries int, baseDelay, maxDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == maxRetries-1 {
			break
		}
		time.Sleep(Backoff(attempt, baseDelay, maxDelay))
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}
