package retry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// IsRetryableError determines if an error is transient and worth retrying.
// Returns true for network timeouts, connection errors, Graph API throttling
// (429) and service unavailability (503/504).
// Returns false for context cancellation, permanent errors, and authentication failures.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Check for context cancellation - never retry these
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Check for Azure SDK response errors (Graph and SharePoint REST throttle
	// with 429; 503/504 show up during tenant maintenance windows)
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return IsRetryableStatusCode(respErr.StatusCode)
	}

	// Check error message for common transient patterns
	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"connection reset",
		"connection refused",
		"temporary failure",
		"try again",
		"i/o timeout",
		"no such host",
		"network is unreachable",
		"broken pipe",
		"connection timed out",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// IsRetryableStatusCode determines if an HTTP status code is retryable.
// Returns true for 429 (throttled), 503 and 504.
func IsRetryableStatusCode(code int) bool {
	return code == 429 || code == 503 || code == 504
}

// RetryAfterDelay extracts the server-requested delay from a throttled
// response. Graph sends Retry-After either as whole seconds or as an
// HTTP-date; returns zero when the error carries neither.
func RetryAfterDelay(err error) time.Duration {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) || respErr.RawResponse == nil {
		return 0
	}
	header := respErr.RawResponse.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if secs, convErr := strconv.Atoi(header); convErr == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, parseErr := http.ParseTime(header); parseErr == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// WithBackoff wraps an operation with exponential backoff retry logic.
// The operation is retried up to maxRetries times with exponentially increasing delays.
// Base delay doubles on each attempt (capped at 30 seconds); a Retry-After
// header on a throttled response extends the wait when it asks for longer.
// Context cancellation is respected and will stop retries immediately.
//
// Example usage:
//
//	err := retry.WithBackoff(ctx, 3, 2*time.Second, func() error {
//	    return doSomethingThatMightFail()
//	})
func WithBackoff(ctx context.Context, maxRetries int, baseDelay time.Duration, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// Execute the operation
		lastErr = operation()

		// Success - return immediately
		if lastErr == nil {
			if attempt > 0 {
				log.Printf("Operation succeeded after %d retries", attempt)
			}
			return nil
		}

		// Check if error is retryable
		if !IsRetryableError(lastErr) {
			// Non-retryable error - fail immediately
			return lastErr
		}

		// Last attempt failed - return error
		if attempt == maxRetries {
			return fmt.Errorf("operation failed after %d retries: %w", maxRetries, lastErr)
		}

		// Calculate exponential backoff delay; a throttled response's
		// Retry-After header wins when it asks for longer (cap at 30 seconds)
		delay := baseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := RetryAfterDelay(lastErr); retryAfter > delay {
			delay = retryAfter
		}
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		log.Printf("Retryable error encountered (attempt %d/%d): %v. Retrying in %v...",
			attempt+1, maxRetries, lastErr, delay)

		// Wait with context cancellation support
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
			// Continue to next retry attempt
		}
	}

	return lastErr
}
