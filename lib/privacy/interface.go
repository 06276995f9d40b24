package privacy

// ConnID identifies a remote session. InvalidConnID means "no connection".
type ConnID int32

// InvalidConnID is the owner reported while the lock is not held. Releasing
// with InvalidConnID force-releases whatever connection holds the lock.
const InvalidConnID ConnID = 0

// IPrivacyLock defines the interface for the exclusive privacy-session lock.
// Only one connection may hold it at a time.
type IPrivacyLock interface {
	// Init prepares the backend. It must be called once before the first Acquire.
	Init() error

	// Acquire tries to activate privacy mode for the given connection.
	// Returns true if privacy mode is active for connID, either newly activated
	// or already held by the same connection. Fails with ErrAlreadyHeld if
	// another connection holds the lock and with ErrBackendUnavailable if the
	// backend could not be enabled. A second Acquire of the same connection
	// while its first one is still in progress waits for that one.
	Acquire(connID ConnID) (bool, error)

	// Release deactivates privacy mode if connID holds the lock or if connID is
	// InvalidConnID. Release always succeeds from the caller's point of view,
	// backend failures are only logged. Releasing with InvalidConnID or with the
	// acquiring connection while its Acquire is in progress makes that Acquire
	// disable the backend again and fail.
	Release(connID ConnID)

	// CurrentOwner returns the connection holding the lock or InvalidConnID.
	CurrentOwner() ConnID

	// Confirmed reports whether connID holds the lock and the backend confirms
	// that the obscuring action is in effect.
	Confirmed(connID ConnID) (bool, error)

	// IsAsync reports whether the backend completes enable/disable asynchronously.
	IsAsync() bool

	// ImplKey returns the key of the backend implementation in use.
	ImplKey() string

	// Teardown releases the lock regardless of its owner and frees the backend.
	Teardown()
}

// IBackend is the platform mechanism that actually obscures the local display.
type IBackend interface {
	// Enable activates the obscuring mechanism.
	Enable() error
	// Disable deactivates it. Must be safe to call even if never enabled.
	Disable() error
}

// Initializer is implemented by backends that need setup before first use.
type Initializer interface {
	Init() error
}

// AsyncBackend is implemented by backends that may complete after Enable or
// Disable returned.
type AsyncBackend interface {
	IsAsync() bool
}

// Confirmer is implemented by asynchronous backends that can report whether
// the obscuring action is actually in effect.
type Confirmer interface {
	Confirmed() (bool, error)
}
