// Package privacy implements the exclusive privacy-session lock of a
// remote-access host. While a remote viewer is connected the host may obscure
// the local display so a person sitting in front of the machine cannot see what
// the viewer sees. Only one connection may hold this privacy lock at a time.
//
// The lock does not decide whether privacy mode should be used, it only
// enforces exclusivity and drives a platform backend (IBackend) that performs
// the actual obscuring action.
//
// Core Functionality:
//   - Acquire with ownership by connection id, re-entrant for the current owner
//   - Release verified against the owner, or forced with InvalidConnID
//   - Release that always clears the lock, even when the backend fails
//   - Teardown for process shutdown
//
// State Machine:
//
//	The lock is either Idle (owner = InvalidConnID) or Held(owner).
//
//	- Acquire(id) on Idle calls Backend.Enable. Only on success the lock moves
//	  to Held(id), otherwise Acquire fails with ErrBackendUnavailable.
//
//	- Acquire(id) on Held(id) succeeds without calling the backend again.
//	  Acquire(id) on Held(other) fails with ErrAlreadyHeld. There is no
//	  queueing and no preemption.
//
//	- Release(id) on Held(id), or Release(InvalidConnID) on any Held state,
//	  calls Backend.Disable and then moves to Idle regardless of the result.
//	  A failing disable is logged and counted as ErrBackendDisableFailed.
//
//	- Any other Release is a no-op.
//
// Thread Safety:
//
//	All transitions are atomic check-and-set (acquire) or check-and-clear
//	(release) operations guarded by a mutex. The backend itself is called
//	outside the critical section: while a transition waits on the backend the
//	lock is reserved for it, so competing Acquire calls fail fast with
//	ErrAlreadyHeld and competing Release calls are no-ops. A hanging backend
//	therefore never blocks CurrentOwner or other callers.
//
// Asynchronous Backends:
//
//	Some backends only start the obscuring action when Enable returns (for
//	example an overlay running in another process). Such backends implement
//	AsyncBackend and Confirmer. The lock reports IsAsync and never waits on
//	them; callers that need confirmation use AwaitConfirmed with a context
//	carrying their own timeout.
//
// Usage Example:
//
//	lock := privacy.NewPrivacyLock(backend, "screensaver")
//	if err := lock.Init(); err != nil {
//	    // Handle error
//	}
//	defer lock.Close()
//
//	ok, err := lock.Acquire(connID)
//	if errors.Is(err, privacy.ErrAlreadyHeld) {
//	    // Deny the request, another session is private
//	}
//
//	if ok {
//	    // ...
//	    lock.Release(connID)
//	}
package privacy
