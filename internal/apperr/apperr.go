// Package apperr defines the error-kind taxonomy every operation across the
// service reports failures through, so every layer — indexer, query
// service, API handlers — classifies failures the same way instead of
// inventing ad hoc sentinel errors per package.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for retry policy and API reporting.
type Kind string

const (
	// NotFound means a path or id is absent on disk or in the repository.
	NotFound Kind = "NotFound"
	// InvalidPath means a path escapes its source root or names no
	// configured source; refused at the API boundary before any I/O.
	InvalidPath Kind = "InvalidPath"
	// IOError means a file read/write failed. IOErrors are reported as
	// they occur; no caller retries them.
	IOError Kind = "IOError"
	// UpstreamUnavailable means the embedding or rerank transport failed.
	// Retried with backoff; query operations surface it directly.
	UpstreamUnavailable Kind = "UpstreamUnavailable"
	// QuotaExhausted means the upstream signaled a rate or quota limit.
	// Triggers credential rotation; collapses to UpstreamUnavailable once
	// every credential is exhausted.
	QuotaExhausted Kind = "QuotaExhausted"
	// Inconsistency means the repository or a structure derived from it
	// was found inconsistent. It is returned to the caller like any other
	// error; no reconciliation is scheduled in response.
	Inconsistency Kind = "Inconsistency"
	// Cancelled means cooperative cancellation via context.
	Cancelled Kind = "Cancelled"
)

// Error wraps an underlying cause with a Kind so callers can branch on
// classification without string-matching error text.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with a formatted detail message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, and
// reports ok=false for any other error, leaving classification to the
// caller (typically IOError for unclassified I/O failures).
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}
