package resilience

import (
	"errors"
	"fmt"
	"time"
)

// QuotaExceededError reports that a service refused work until its quota resets.
// It is never retried and callers are expected to end the whole session.
type QuotaExceededError struct {
	Service string
	Message string
}

func (e *QuotaExceededError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("quota exceeded: %s", e.Message)
	}
	return fmt.Sprintf("%s quota exceeded: %s", e.Service, e.Message)
}

// RetryExhaustedError reports a transient failure that outlasted the retry budget.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	TotalWait time.Duration
	Err       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts (waited %s): %v",
		e.Operation, e.Attempts, e.TotalWait.Round(time.Second), e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// IsQuotaExceeded reports whether err carries a [*QuotaExceededError].
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsRetryExhausted reports whether err carries a [*RetryExhaustedError].
func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}

// UserHint returns advice to print alongside a failed session, or "" for errors without one.
func UserHint(err error) string {
	switch {
	case IsQuotaExceeded(err):
		return "The service quota is exhausted. Wait for the quota to reset or request a quota increase, then run the command again."
	case IsRetryExhausted(err):
		return "The service kept failing. Wait 15-30 minutes and run the command again; completed progress has been saved and will be resumed."
	default:
		return ""
	}
}
