package overlay

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("overlay")

// ErrClosed is returned by Set after Close.
var ErrClosed = errors.New("overlay controller closed")

// Status is a snapshot of the controller state.
type Status struct {
	Desired bool   // state requested by the last Set
	Active  bool   // state the backend is known to be in
	Pending bool   // a background transition towards Desired is queued or running
	Async   bool   // Set returns before the backend call completes
	Err     string // last backend error, empty if the last call succeeded
}

// Controller drives a backend on behalf of an overlay agent. It keeps the
// desired state and converges the backend towards it.
type Controller struct {
	backend privacy.IBackend
	async   bool

	// applyMu serializes backend calls
	applyMu sync.Mutex

	mu      sync.Mutex
	desired bool
	active  bool
	pending bool
	lastErr error
	closed  bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
}

// NewController creates a controller for backend. In async mode Set only
// records the desired state and a single worker goroutine applies it.
func NewController(backend privacy.IBackend, async bool) *Controller {
	c := &Controller{
		backend: backend,
		async:   async,
		wake:    make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	if async {
		go c.worker()
	} else {
		close(c.done)
	}
	return c
}

// Init prepares the backend if it needs setup.
func (c *Controller) Init() error {
	if initializer, ok := c.backend.(privacy.Initializer); ok {
		if err := initializer.Init(); err != nil {
			return fmt.Errorf("init overlay backend: %w", err)
		}
	}
	return nil
}

// Set turns the overlay on or off. Setting the current state again is a no-op.
// In sync mode the backend call completes before Set returns and its error is
// returned. In async mode Set returns at once; failures show up in Status.
func (c *Controller) Set(enabled bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.desired = enabled

	if c.async {
		c.pending = c.desired != c.active
		pending := c.pending
		c.mu.Unlock()

		if pending {
			select {
			case c.wake <- struct{}{}:
			default:
			}
		}
		return nil
	}
	c.mu.Unlock()

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	return c.converge()
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Desired: c.desired,
		Active:  c.active,
		Pending: c.pending,
		Async:   c.async,
	}
	if c.lastErr != nil {
		s.Err = c.lastErr.Error()
	}
	return s
}

// Close stops the worker, turns an active overlay off and closes the backend.
// Calling Close more than once is safe.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.desired = false
	c.mu.Unlock()

	close(c.stopCh)
	<-c.done

	var result *multierror.Error

	c.applyMu.Lock()
	if err := c.converge(); err != nil {
		result = multierror.Append(result, err)
	}
	c.applyMu.Unlock()

	if closer, ok := c.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close backend: %w", err))
		}
	}
	return result.ErrorOrNil()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// worker applies the latest desired state until the controller is closed
func (c *Controller) worker() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			return
		case <-c.wake:
			c.applyMu.Lock()
			if err := c.converge(); err != nil {
				Logger.Warningf("overlay transition failed: %v", err)
			}
			c.applyMu.Unlock()
		}
	}
}

// converge calls the backend until it matches the desired state. A failed
// enable stops the loop, a failed disable still marks the overlay inactive.
// The caller must hold applyMu.
func (c *Controller) converge() error {
	var disableErr error

	for {
		c.mu.Lock()
		if c.desired == c.active {
			c.pending = false
			c.mu.Unlock()
			return disableErr
		}
		target := c.desired
		c.mu.Unlock()

		if target {
			err := c.backend.Enable()

			c.mu.Lock()
			c.lastErr = err
			if err != nil {
				c.pending = false
				c.mu.Unlock()
				Logger.Errorf("failed to enable overlay: %v", err)
				return fmt.Errorf("%w: %w", privacy.ErrBackendUnavailable, err)
			}
			c.active = true
			c.mu.Unlock()

			Logger.Infof("overlay enabled")
			continue
		}

		err := c.backend.Disable()

		c.mu.Lock()
		c.lastErr = err
		c.active = false
		c.mu.Unlock()

		if err != nil {
			Logger.Warningf("failed to disable overlay, marking it inactive: %v", err)
			disableErr = fmt.Errorf("%w: %w", privacy.ErrBackendDisableFailed, err)
		} else {
			Logger.Infof("overlay disabled")
		}
	}
}
