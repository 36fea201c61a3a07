package resilience

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
)

// Kind is the retry classification of an error.
type Kind int

const (
	KindOther Kind = iota
	KindTransient
	KindQuota
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindQuota:
		return "quota"
	default:
		return "other"
	}
}

var quotaHints = []string{
	"quota",
	"daily limit",
	"dailylimitexceeded",
}

var transientHints = []string{
	"busy",
	"unavailable",
	"503",
	"429",
	"rate limit",
	"too many requests",
	"try again",
	"timed out",
	"timeout",
	"connection reset",
}

// Classify decides how the pipeline treats err.
//
// Quota messages win over transient ones, so "rate limit: daily quota exceeded" is fatal.
// The error and its immediate cause are both inspected.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var qe *QuotaExceededError
	if errors.As(err, &qe) {
		return KindQuota
	}
	if errors.Is(err, context.Canceled) {
		return KindOther
	}

	candidates := []error{err}
	if inner := errors.Unwrap(err); inner != nil {
		candidates = append(candidates, inner)
	}

	for _, e := range candidates {
		if matchesAny(e.Error(), quotaHints) {
			return KindQuota
		}
	}
	for _, e := range candidates {
		if isTransientType(e) || matchesAny(e.Error(), transientHints) {
			return KindTransient
		}
	}
	return KindOther
}

func isTransientType(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}

func matchesAny(msg string, hints []string) bool {
	text := strings.ToLower(msg)
	for _, h := range hints {
		if strings.Contains(text, h) {
			return true
		}
	}
	return false
}
