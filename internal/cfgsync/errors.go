package cfgsync

import "errors"

// Sentinel errors for the failure taxonomy. Remote implementations wrap
// these so callers can classify with errors.Is.
var (
	// ErrRemoteUnavailable means the remote store could not be reached.
	// It is absorbed by the reconciler, which falls back to cached data.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrValidationRejected means the remote explicitly refused a write.
	// No fallback write happens; the error propagates unchanged.
	ErrValidationRejected = errors.New("validation rejected by remote")

	// ErrInvariantViolation means a local precondition failed before any
	// network call was made, e.g. disabling the only active account.
	ErrInvariantViolation = errors.New("security invariant violation")

	// ErrNotFound means the remote is reachable but holds no document
	// (or no such account).
	ErrNotFound = errors.New("not found")
)

// Outcome tags the result of a reconciler operation. Degraded is not an
// error: the operation succeeded, but against locally cached data that will
// be reconciled once the remote becomes reachable again.
type Outcome int

const (
	// OutcomeSuccess means the authoritative remote store served the call.
	OutcomeSuccess Outcome = iota

	// OutcomeDegraded means the fallback cache served the call.
	OutcomeDegraded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Degraded reports whether the outcome used fallback data.
func (o Outcome) Degraded() bool { return o == OutcomeDegraded }

// Result is the value returned by reconciler operations. Callers must check
// Outcome before treating Document as authoritative.
type Result struct {
	Document *ConfigDocument
	Outcome  Outcome
}
