// Package crackerr provides the error taxonomy and logging helpers used by the crack engine.
package crackerr

import (
	"context"
	stderrors "errors"
)

// Kind represents the classification of a crack engine error.
type Kind int

const (
	// KindUnknown is for errors that carry no classification.
	KindUnknown Kind = iota
	// KindInput is for unparseable or non-group-text packet input and invalid options (fatal, never retried).
	KindInput
	// KindAccelerationUnavailable is for runs that need an accelerator and have none.
	KindAccelerationUnavailable
	// KindCandidateRejected is for expected search noise: hash, MAC or filter mismatches.
	KindCandidateRejected
	// KindAborted is for user-requested cancellation.
	KindAborted
	// KindDevice is for accelerator failures during a dispatch.
	KindDevice
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindInput:
		return "input"
	case KindAccelerationUnavailable:
		return "acceleration_unavailable"
	case KindCandidateRejected:
		return "candidate_rejected"
	case KindAborted:
		return "aborted"
	case KindDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Fatal reports whether errors of this kind end a crack run.
func (k Kind) Fatal() bool {
	return k != KindCandidateRejected && k != KindAborted
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error of the given kind wrapping err.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return e.Op + ": " + e.Err.Error()
	}
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain.
// Context cancellation is reported as KindAborted.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var ce *Error
	if stderrors.As(err, &ce) {
		return ce.Kind
	}

	if stderrors.Is(err, context.Canceled) {
		return KindAborted
	}

	return KindUnknown
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
