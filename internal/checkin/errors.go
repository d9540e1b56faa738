package checkin

import "fmt"

// Kind classifies an admission failure.
type Kind int

const (
	// KindUnauthorized means no resolvable identity for the acting person.
	KindUnauthorized Kind = iota
	// KindForbidden means a non-admin attempted an admin-only action.
	KindForbidden
	// KindConflict means the card is already held by someone else.
	KindConflict
	// KindNotAcceptable means outside the time window or cluster at capacity.
	KindNotAcceptable
	// KindConfigMissing means no access config resolves for today. This
	// blocks all gated actions and indicates operational misconfiguration.
	KindConfigMissing
	// KindInternal covers persistence and other unexpected failures.
	KindInternal
)

// Error is an admission failure with enough context to explain the refusal.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the failure kind from an error, defaulting to
// KindInternal for untyped errors.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}
