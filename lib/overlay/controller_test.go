package overlay

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/privlock/lib/backend/noop"
	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedBackend blocks Enable until the gate is opened
type gatedBackend struct {
	gate     chan struct{}
	enables  atomic.Int32
	disables atomic.Int32
	closed   atomic.Bool
}

func (b *gatedBackend) Enable() error {
	<-b.gate
	b.enables.Add(1)
	return nil
}

func (b *gatedBackend) Disable() error {
	b.disables.Add(1)
	return nil
}

func (b *gatedBackend) Close() error {
	b.closed.Store(true)
	return nil
}

func TestSyncSetIsIdempotent(t *testing.T) {
	b := noop.New()
	c := NewController(b, false)
	defer c.Close()

	require.NoError(t, c.Set(true))
	require.NoError(t, c.Set(true))
	require.NoError(t, c.Set(false))
	require.NoError(t, c.Set(false))

	enables, disables := b.Calls()
	assert.Equal(t, 1, enables)
	assert.Equal(t, 1, disables)
	assert.Equal(t, Status{}, c.Status())
}

func TestSyncEnableFailure(t *testing.T) {
	b := noop.New()
	b.Fail(errors.New("no display"), nil)
	c := NewController(b, false)
	defer c.Close()

	err := c.Set(true)
	require.ErrorIs(t, err, privacy.ErrBackendUnavailable)

	status := c.Status()
	assert.True(t, status.Desired)
	assert.False(t, status.Active)
	assert.False(t, status.Pending)
	assert.Equal(t, "no display", status.Err)

	// a later success clears the error
	b.Fail(nil, nil)
	require.NoError(t, c.Set(true))
	assert.True(t, c.Status().Active)
	assert.Empty(t, c.Status().Err)
}

func TestSyncDisableFailureIsFailOpen(t *testing.T) {
	b := noop.New()
	c := NewController(b, false)
	defer c.Close()

	require.NoError(t, c.Set(true))
	b.Fail(nil, errors.New("stuck"))

	err := c.Set(false)
	require.ErrorIs(t, err, privacy.ErrBackendDisableFailed)
	assert.False(t, c.Status().Active)
}

func TestAsyncSetReturnsBeforeBackend(t *testing.T) {
	b := &gatedBackend{gate: make(chan struct{})}
	c := NewController(b, true)
	defer c.Close()

	require.NoError(t, c.Set(true))

	status := c.Status()
	assert.True(t, status.Async)
	assert.True(t, status.Desired)
	assert.True(t, status.Pending)
	assert.False(t, status.Active)

	close(b.gate)
	assert.Eventually(t, func() bool {
		s := c.Status()
		return s.Active && !s.Pending
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), b.enables.Load())
}

func TestAsyncConvergesToLatestState(t *testing.T) {
	b := &gatedBackend{gate: make(chan struct{})}
	c := NewController(b, true)
	defer c.Close()

	// on, off, on while the first enable is blocked
	require.NoError(t, c.Set(true))
	require.NoError(t, c.Set(false))
	require.NoError(t, c.Set(true))

	close(b.gate)
	assert.Eventually(t, func() bool {
		s := c.Status()
		return s.Desired && s.Active && !s.Pending
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseDisablesActiveOverlay(t *testing.T) {
	b := &gatedBackend{gate: make(chan struct{})}
	close(b.gate)
	c := NewController(b, false)

	require.NoError(t, c.Set(true))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	assert.Equal(t, int32(1), b.disables.Load())
	assert.True(t, b.closed.Load())
	assert.ErrorIs(t, c.Set(true), ErrClosed)
}

func TestCloseCollectsErrors(t *testing.T) {
	b := &failingCloser{Backend: noop.New()}
	c := NewController(b, false)

	require.NoError(t, c.Set(true))
	b.Fail(nil, errors.New("stuck"))

	err := c.Close()
	require.ErrorIs(t, err, privacy.ErrBackendDisableFailed)
	assert.ErrorContains(t, err, "stuck")
	assert.ErrorContains(t, err, "close backend: agent gone")
}

// failingCloser fails Close after delegating to the noop backend
type failingCloser struct {
	*noop.Backend
}

func (b *failingCloser) Close() error {
	return errors.New("agent gone")
}

func TestInitCallsBackendInitializer(t *testing.T) {
	c := NewController(initBackend{err: errors.New("bus down")}, false)
	defer c.Close()

	assert.ErrorContains(t, c.Init(), "bus down")
}

type initBackend struct {
	err error
}

func (b initBackend) Init() error    { return b.err }
func (b initBackend) Enable() error  { return nil }
func (b initBackend) Disable() error { return nil }
