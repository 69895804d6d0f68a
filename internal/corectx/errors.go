// Package corectx implements the process-wide core context and error plane
// (component C9): typed error records, a thread-local (context-scoped) last
// error slot, and an optional sink for forwarding error records elsewhere.
package corectx

import "fmt"

// Code is the error taxonomy from spec §7.
type Code string

const (
	CodeInvalidParameter     Code = "invalid-parameter"
	CodeOutOfMemory          Code = "out-of-memory"
	CodeNotFound             Code = "not-found"
	CodeAlreadyExists        Code = "already-exists"
	CodePermissionDenied     Code = "permission-denied"
	CodeInvalidState         Code = "invalid-state"
	CodeGuardDenied          Code = "guard-denied"
	CodeIntegrityCheckFailed Code = "integrity-check-failed"
	CodeTooLarge             Code = "too-large"
	CodeChecksumMismatch     Code = "checksum-mismatch"
	CodeForeignException     Code = "foreign-exception"
	CodeCapacityExceeded     Code = "capacity-exceeded"
	CodeCancelled            Code = "cancelled"
	CodeInternal             Code = "internal"
)

// Severity classifies how an Error should be handled by its caller.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// severityOf is the taxonomy's fixed code→severity mapping (spec §7).
var severityOf = map[Code]Severity{
	CodeInvalidParameter:     SeverityError,
	CodeOutOfMemory:          SeverityFatal,
	CodeNotFound:             SeverityError,
	CodeAlreadyExists:        SeverityWarning,
	CodePermissionDenied:     SeverityError,
	CodeInvalidState:         SeverityError,
	CodeGuardDenied:          SeverityWarning,
	CodeIntegrityCheckFailed: SeverityError,
	CodeTooLarge:             SeverityError,
	CodeChecksumMismatch:     SeverityError,
	CodeForeignException:     SeverityError,
	CodeCapacityExceeded:     SeverityError,
	CodeCancelled:            SeverityInfo,
	CodeInternal:             SeverityFatal,
}

// Error is the by-value typed error record from spec §3/§9. It is immutable
// once constructed; callers read its fields, they never mutate a shared
// instance.
type Error struct {
	Source   string // component that raised the error, e.g. "ffi", "memory"
	Code     Code
	Severity Severity
	Message  string
	Context  string // optional one-line context snippet
	cause    error
}

// New constructs an Error, deriving Severity from the taxonomy's fixed
// code→severity mapping. Use NewWithCause to additionally wrap a Go error
// for errors.Is/As composition.
func New(source string, code Code, message string) *Error {
	return &Error{
		Source:   source,
		Code:     code,
		Severity: severityOf[code],
		Message:  message,
	}
}

// NewWithCause is like New but records an underlying Go error, reachable via
// errors.Unwrap so errors.Is/As still match the wrapped sentinel.
func NewWithCause(source string, code Code, message string, cause error) *Error {
	e := New(source, code, message)
	e.cause = cause
	return e
}

// WithContext returns a copy of e with its Context snippet set.
func (e *Error) WithContext(snippet string) *Error {
	cp := *e
	cp.Context = snippet
	return &cp
}

// Error implements the standard error interface.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s [%s] (%s)", e.Source, e.Message, e.Code, e.Context)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Source, e.Message, e.Code)
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// Fatal reports whether this error is unrecoverable: its severity is fatal,
// or its code is integrity-check-failed, which the taxonomy marks
// unrecoverable at error severity.
func (e *Error) Fatal() bool {
	return e.Severity == SeverityFatal || e.Code == CodeIntegrityCheckFailed
}

// Recoverable reports whether this error is recoverable (not Fatal).
func (e *Error) Recoverable() bool {
	return !e.Fatal()
}
