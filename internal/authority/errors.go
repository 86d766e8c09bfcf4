package authority

import (
	"fmt"
	"strconv"
	"time"

	"fiscaldoc/internal/domain"
)

// RetryAfterError indicates the authority answered 429 or 503 and asked the
// caller to back off.
type RetryAfterError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *RetryAfterError) Error() string {
	return fmt.Sprintf("authority busy (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RetryAfterError) Unwrap() error {
	return e.Err
}

// StatusError is a non-retryable answer from the authority endpoint. It
// matches domain.ErrSubmissionRefused.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("authority API error (status %d): %s", e.StatusCode, e.Body)
}

func (e *StatusError) Is(target error) bool { return target == domain.ErrSubmissionRefused }

// parseRetryAfter reads a Retry-After header given in seconds. Dates and
// garbage yield fallback.
func parseRetryAfter(val string, fallback time.Duration) time.Duration {
	if val == "" {
		return fallback
	}
	secs, err := strconv.Atoi(val)
	if err != nil || secs < 0 {
		return fallback
	}
	return time.Duration(secs) * time.Second
}
