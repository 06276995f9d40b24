package privacy

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("privacy")

// Lock is the process-wide privacy lock of a host. It is an explicit object
// rather than a package-level variable, so several independent locks may
// exist side by side (one per service, or one per test).
type Lock struct {
	backend   IBackend
	implKey   string
	async     bool
	confirmer Confirmer

	// mu guards every transition. Backend calls are made without holding it,
	// inFlight marks the connection whose transition waits on the backend.
	// settled is signalled whenever inFlight is cleared.
	mu       sync.Mutex
	settled  *sync.Cond
	inFlight ConnID

	// cancelEnable is set by a release that arrives while an acquire waits on
	// Enable. The acquire then disables again instead of taking ownership.
	cancelEnable bool

	// owner is written under mu only, reads are lock free
	owner atomic.Int32

	stats *lockMetrics
}

// NewPrivacyLock creates a new lock driving the given backend. The implKey is
// the name the backend was created with and is reported by ImplKey.
func NewPrivacyLock(backend IBackend, implKey string) *Lock {
	l := &Lock{
		backend: backend,
		implKey: implKey,
	}
	l.settled = sync.NewCond(&l.mu)

	l.resolveCapabilities()

	l.stats = newLockMetrics(implKey, func() bool {
		return l.CurrentOwner() != InvalidConnID
	})
	return l
}

// resolveCapabilities reads the optional backend capabilities
func (l *Lock) resolveCapabilities() {
	if a, ok := l.backend.(AsyncBackend); ok {
		l.async = a.IsAsync()
	}
	if c, ok := l.backend.(Confirmer); ok {
		l.confirmer = c
	}
}

// Compile-time interface check.
var _ IPrivacyLock = (*Lock)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see IPrivacyLock)
// --------------------------------------------------------------------------

func (l *Lock) Init() error {
	initializer, ok := l.backend.(Initializer)
	if !ok {
		return nil
	}
	if err := initializer.Init(); err != nil {
		return fmt.Errorf("init %s backend: %w", l.implKey, err)
	}
	// remote backends only know whether they are async once connected
	l.resolveCapabilities()
	Logger.Infof("initialized %s backend (async=%t)", l.implKey, l.async)
	return nil
}

func (l *Lock) Acquire(connID ConnID) (bool, error) {
	if connID == InvalidConnID {
		return false, fmt.Errorf("%w: cannot acquire with the invalid connection id", ErrAlreadyHeld)
	}

	l.mu.Lock()
	// a retried request of the same connection waits for the outcome of its own transition
	for l.inFlight == connID {
		l.settled.Wait()
	}

	owner := l.CurrentOwner()
	switch {
	case l.inFlight != InvalidConnID:
		inFlight := l.inFlight
		l.mu.Unlock()
		l.stats.acquireAlreadyHeld.Inc()
		return false, fmt.Errorf("%w: transition in progress for connection %d", ErrAlreadyHeld, inFlight)
	case owner == connID:
		l.mu.Unlock()
		l.stats.acquireReentrant.Inc()
		Logger.Debugf("privacy mode already on for connection %d", connID)
		return true, nil
	case owner != InvalidConnID:
		l.mu.Unlock()
		l.stats.acquireAlreadyHeld.Inc()
		return false, fmt.Errorf("%w: held by connection %d", ErrAlreadyHeld, owner)
	}

	// reserve the transition, everybody else fails fast until the backend returned
	l.inFlight = connID
	l.mu.Unlock()

	Logger.Infof("turning on privacy mode for connection %d (impl=%s)", connID, l.implKey)
	err := l.backend.Enable()

	l.mu.Lock()
	cancelled := err == nil && l.cancelEnable
	if !cancelled {
		if err == nil {
			l.owner.Store(int32(connID))
		}
		l.inFlight = InvalidConnID
		l.cancelEnable = false
		l.settled.Broadcast()
	}
	l.mu.Unlock()

	if err != nil {
		l.stats.acquireBackendUnavailable.Inc()
		Logger.Errorf("failed to turn on privacy mode for connection %d: %v", connID, err)
		return false, fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if cancelled {
		// released while turning on, the transition stays reserved until the backend is off again
		disableErr := l.backend.Disable()

		l.mu.Lock()
		l.inFlight = InvalidConnID
		l.cancelEnable = false
		l.settled.Broadcast()
		l.mu.Unlock()

		if disableErr != nil {
			l.stats.releaseBackendFailed.Inc()
			Logger.Warningf("%v for connection %d: %v", ErrBackendDisableFailed, connID, disableErr)
		} else {
			l.stats.releaseOk.Inc()
		}
		l.stats.acquireCancelled.Inc()
		Logger.Infof("privacy mode for connection %d released while turning on", connID)
		return false, fmt.Errorf("%w: released while turning on privacy mode for connection %d", ErrAlreadyHeld, connID)
	}

	l.stats.acquireOk.Inc()
	Logger.Infof("privacy mode turned on for connection %d", connID)
	return true, nil
}

func (l *Lock) Release(connID ConnID) {
	l.mu.Lock()
	owner := l.CurrentOwner()

	// an acquire waiting on Enable is cancelled by a forced release or by its own connection
	if owner == InvalidConnID && l.inFlight != InvalidConnID && (connID == InvalidConnID || connID == l.inFlight) {
		l.cancelEnable = true
		inFlight := l.inFlight
		l.mu.Unlock()
		Logger.Infof("release by connection %d cancels pending acquire of connection %d", connID, inFlight)
		return
	}

	if owner == InvalidConnID || l.inFlight != InvalidConnID || (connID != InvalidConnID && connID != owner) {
		l.mu.Unlock()
		l.stats.releaseNoop.Inc()
		Logger.Debugf("release by connection %d ignored (owner=%d)", connID, owner)
		return
	}
	l.inFlight = owner
	l.mu.Unlock()

	err := l.backend.Disable()

	// the lock is cleared whatever the backend said
	l.mu.Lock()
	l.owner.Store(int32(InvalidConnID))
	l.inFlight = InvalidConnID
	l.settled.Broadcast()
	l.mu.Unlock()

	if err != nil {
		l.stats.releaseBackendFailed.Inc()
		Logger.Warningf("%v for connection %d: %v", ErrBackendDisableFailed, owner, err)
	} else {
		l.stats.releaseOk.Inc()
	}
	Logger.Infof("privacy mode turned off (owner was %d, released by %d)", owner, connID)
}

func (l *Lock) CurrentOwner() ConnID {
	return ConnID(l.owner.Load())
}

func (l *Lock) Confirmed(connID ConnID) (bool, error) {
	if connID == InvalidConnID || l.CurrentOwner() != connID {
		return false, nil
	}
	if l.confirmer == nil {
		return true, nil
	}
	return l.confirmer.Confirmed()
}

func (l *Lock) IsAsync() bool {
	return l.async
}

func (l *Lock) ImplKey() string {
	return l.implKey
}

func (l *Lock) Teardown() {
	l.Release(InvalidConnID)
}

// --------------------------------------------------------------------------
// Lock specific methods
// --------------------------------------------------------------------------

// Close tears the lock down and closes the backend if it holds resources.
// The lock must not be used afterwards.
func (l *Lock) Close() error {
	l.Teardown()
	if c, ok := l.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// WritePrometheus writes the lock metrics in Prometheus text format to w.
func (l *Lock) WritePrometheus(w io.Writer) {
	l.stats.set.WritePrometheus(w)
}
