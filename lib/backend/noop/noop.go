// Package noop provides a backend that obscures nothing. It is used on
// headless hosts where there is no local display and in tests.
package noop

import (
	"sync"

	"github.com/ValentinKolb/privlock/lib/privacy"
)

// Backend records the calls it receives. Failures can be injected with Fail.
type Backend struct {
	mu         sync.Mutex
	enabled    bool
	enables    int
	disables   int
	enableErr  error
	disableErr error
}

// Compile-time interface check.
var _ privacy.IBackend = (*Backend)(nil)

// New creates a new noop backend.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Enable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.enables++
	if b.enableErr != nil {
		return b.enableErr
	}
	b.enabled = true
	return nil
}

func (b *Backend) Disable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.disables++
	b.enabled = false
	return b.disableErr
}

// Fail makes subsequent Enable and Disable calls return the given errors.
// Pass nil to make them succeed again.
func (b *Backend) Fail(enableErr, disableErr error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enableErr = enableErr
	b.disableErr = disableErr
}

// Enabled reports whether the last successful call was Enable.
func (b *Backend) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Calls returns how often Enable and Disable were called.
func (b *Backend) Calls() (enables, disables int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enables, b.disables
}
