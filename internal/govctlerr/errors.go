// Package govctlerr declares the error-kind taxonomy shared by every
// component of the governance core. Kinds are not Go types per-component;
// a single wrapping Error carries a Kind so callers can branch with
// errors.Is against the small set of sentinel kinds below instead of
// type-switching across package boundaries.
package govctlerr

import (
	"errors"
	"fmt"
)

// Kind is one of the taxonomy entries from the governance design doc.
type Kind string

const (
	KindConfig      Kind = "config_error"
	KindAuth        Kind = "auth_error"
	KindTransient   Kind = "transient_error"
	KindBudget      Kind = "budget_exceeded"
	KindSuppressed  Kind = "suppressed_violation"
	KindNoReference Kind = "finding_without_reference"
	KindDeadline    Kind = "deadline_exceeded"
	KindTool        Kind = "tool_error"
	KindInternal    Kind = "internal_error"
)

// Error wraps an underlying error with a Kind and the operation that
// raised it. Config, auth, and internal kinds are meant to propagate to
// the CLI boundary; transient and tool kinds are meant to be handled
// locally by their owning component.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, govctlerr.Error{Kind: KindAuth}) style matching
// against a kind-only sentinel, ignoring Op and Err.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New builds a kind-tagged error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel returns a zero-value error of the given kind, suitable for use
// as the target of errors.Is checks: errors.Is(err, govctlerr.Sentinel(KindAuth)).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// IsKind reports whether the first *Error in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

var (
	// ErrNotImplemented marks CLI surface for out-of-core-scope subcommands
	// (spec.md's external collaborators) that have no concrete backend
	// wired in the current configuration.
	ErrNotImplemented = errors.New("not implemented: no external collaborator configured")
)
