package privacy

import "errors"

var (
	// ErrAlreadyHeld is returned by Acquire when another connection holds the
	// lock or a transition for another connection is in flight.
	ErrAlreadyHeld = errors.New("privacy lock already held")

	// ErrBackendUnavailable is returned by Acquire when the backend failed to
	// enable the obscuring mechanism.
	ErrBackendUnavailable = errors.New("privacy backend unavailable")

	// ErrBackendDisableFailed is only logged and counted. It is never returned
	// from Release since the lock is cleared anyway.
	ErrBackendDisableFailed = errors.New("privacy backend disable failed")

	// ErrNotOwner is returned by AwaitConfirmed when the lock no longer belongs
	// to the awaited connection.
	ErrNotOwner = errors.New("connection does not hold the privacy lock")
)
