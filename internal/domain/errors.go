package domain

import "fmt"

// Kind enumerates the error taxonomy of spec §7. Every boundary in the
// system returns one of these (wrapped in *Error) instead of ad-hoc
// sentinel errors, so the HTTP layer can map Kind -> status code in
// one place.
type Kind string

const (
	// KindValidationFailed is malformed input at a boundary. Never retried.
	KindValidationFailed Kind = "validation_failed"
	// KindSessionNotFound is a missing Session reference.
	KindSessionNotFound Kind = "session_not_found"
	// KindHierarchyNotFound is a missing survey/platform/respondent slice.
	KindHierarchyNotFound Kind = "hierarchy_not_found"
	// KindCapExceeded is the per-session event_count cap being reached.
	KindCapExceeded Kind = "cap_exceeded"
	// KindClassifierUnavailable is a TextClassifier timeout/permanent failure.
	KindClassifierUnavailable Kind = "classifier_unavailable"
	// KindFraudComponentUnavailable is a failed cross-session lookup.
	KindFraudComponentUnavailable Kind = "fraud_component_unavailable"
	// KindConflict is a duplicate write resolved by idempotent upsert.
	KindConflict Kind = "conflict"
	// KindInternal is an unexpected invariant violation.
	KindInternal Kind = "internal"
)

// Error is the shared error type for the scoring engine. It carries a
// Kind so callers (and the HTTP boundary) can branch on category
// without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// IsKind reports whether err is a *domain.Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	if e, ok := err.(*Error); ok {
		de = e
	} else {
		return false
	}
	return de.Kind == kind
}
