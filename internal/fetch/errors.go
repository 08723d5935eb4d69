// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies a fetch failure. The scheduler and sources branch on it:
// transient and rate-limited failures are handled inside the fetcher and
// only surface once retries exhaust; quota exhaustion stops the whole run.
type Kind int

const (
	// KindTransient covers transport errors, timeouts, and 5xx responses.
	KindTransient Kind = iota

	// KindPermanent covers 4xx responses other than 429 and malformed
	// responses. Never retried.
	KindPermanent

	// KindRateLimited is a 429 with a server-guided wait below the ceiling.
	// Handled inside the fetcher; surfaces only when retries exhaust.
	KindRateLimited

	// KindQuotaExhausted is a 429 whose implied wait exceeds the ceiling.
	// Fatal to the run, not to the record.
	KindQuotaExhausted

	// KindNoContent marks a transport-level success whose payload carried
	// no usable content (e.g. a JATS article with no <body>).
	KindNoContent

	// KindUnparseable marks a record that lacks the fields needed to even
	// schedule a fetch (no extractable identifier).
	KindUnparseable
)

// String returns the kind's label as used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindRateLimited:
		return "rate_limited"
	case KindQuotaExhausted:
		return "quota_exhausted"
	case KindNoContent:
		return "no_content"
	case KindUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind   Kind
	Status int

	// Detail is a human-readable reason recorded in the failure log.
	Detail string

	// ResumeIn estimates when the quota resets. Set only for
	// KindQuotaExhausted.
	ResumeIn time.Duration
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Kind == KindQuotaExhausted {
		return fmt.Sprintf("quota exhausted: resets in %s", e.ResumeIn.Round(time.Minute))
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// KindOf returns the failure kind of err, or KindTransient when err is not
// a classified fetch error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindTransient
}

// IsQuotaExhausted reports whether err is fatal to the run.
func IsQuotaExhausted(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == KindQuotaExhausted
}
