package lifecycle

import (
	"errors"
	"fmt"
)

// Lifecycle errors. They are recoverable: the registry rejects the request
// and leaves state unchanged.
var (
	// ErrIllegalTransition is returned when the transition table forbids a move.
	ErrIllegalTransition = errors.New("lifecycle: illegal transition")

	// ErrUnknownComponent is returned for a non-Created transition on an
	// identity the registry has never seen.
	ErrUnknownComponent = errors.New("lifecycle: unknown component")

	// ErrAlreadyDeleted is returned for any transition on a deleted identity.
	ErrAlreadyDeleted = errors.New("lifecycle: component already deleted")

	// ErrStaleState is returned by TransitionFrom when the current status no
	// longer matches the caller's expectation.
	ErrStaleState = errors.New("lifecycle: stale state")

	// ErrDispatcherClosed is returned by Subscribe after Close.
	ErrDispatcherClosed = errors.New("lifecycle: dispatcher closed")
)

// TransitionError describes a rejected transition.
type TransitionError struct {
	Identity Identity
	From     Status
	To       Status
	Err      error
}

func (e *TransitionError) Error() string {
	if e.Identity == (Identity{}) {
		return fmt.Sprintf("%v: %s -> %s", e.Err, e.From, e.To)
	}
	return fmt.Sprintf("%v: %s: %s -> %s", e.Err, e.Identity, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
