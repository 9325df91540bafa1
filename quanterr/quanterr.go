// Package quanterr defines the typed error value surfaced by every core
// component: a kind, the component that raised it, a human-readable detail,
// and optionally the offending value.
package quanterr

import "fmt"

type Kind string

const (
	// Contract means the caller violated an input contract (empty series,
	// non-monotone index, out-of-range fraction, ...).
	Contract Kind = "contract"

	// Numeric marks an undefined numerical edge case that could not be
	// resolved with the documented sentinel conventions.
	Numeric Kind = "numeric"

	// Search marks a failure inside a single optimisation trial.
	Search Kind = "search"

	// Internal marks an unexpected implementation failure.
	Internal Kind = "internal"
)

// Error is the user-visible failure value. Caller layers translate it into
// UI messages or status codes.
type Error struct {
	Kind      Kind
	Component string
	Detail    string
	Value     any // offending value, nil when not applicable
}

func (e *Error) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s: %s (got %v)", e.Component, e.Kind, e.Detail, e.Value)
	}
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Kind, e.Detail)
}

// Contractf builds a contract-violation error naming the offending value.
func Contractf(component string, value any, format string, args ...any) *Error {
	return &Error{
		Kind:      Contract,
		Component: component,
		Detail:    fmt.Sprintf(format, args...),
		Value:     value,
	}
}

// Internalf builds an internal error.
func Internalf(component string, format string, args ...any) *Error {
	return &Error{
		Kind:      Internal,
		Component: component,
		Detail:    fmt.Sprintf(format, args...),
	}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, k Kind) bool {
	qe, ok := err.(*Error)
	return ok && qe.Kind == k
}
