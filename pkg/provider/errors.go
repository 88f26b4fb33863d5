package provider

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an upstream failure for the orchestrator's
// cascade decisions. Each adapter maps its own wire-level errors into
// these kinds; the orchestrator never inspects status codes or messages.
type ErrorKind string

const (
	// KindQuota indicates the upstream rejected the call for rate-limit or
	// credential-exhaustion reasons (HTTP 429/403 or an equivalent payload).
	// The orchestrator places the used key on cooldown and cascades.
	KindQuota ErrorKind = "quota"

	// KindNotFound indicates the subject has no data at this provider.
	KindNotFound ErrorKind = "not_found"

	// KindTransient covers network failures, malformed responses and
	// upstream 5xx errors. Eligible for cascade.
	KindTransient ErrorKind = "transient"
)

// Error is the typed error every adapter returns. It carries enough context
// for logs while keeping the classification machine-readable.
type Error struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %s: %v",
			e.Provider, e.Kind, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d): %s",
		e.Provider, e.Kind, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindTransient if err is not
// a *provider.Error. Unknown failures are treated as transient so the
// orchestrator still cascades rather than dropping the request.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsQuota reports whether err is classified as a quota/rate-limit failure.
func IsQuota(err error) bool {
	return KindOf(err) == KindQuota
}

// IsNotFound reports whether err is classified as missing subject data.
func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindNotFound
}

// IsTransient reports whether err is classified as transient.
func IsTransient(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Kind == KindTransient
}
