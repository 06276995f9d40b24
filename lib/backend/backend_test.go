package backend

import (
	"errors"
	"io"
	"testing"

	"github.com/ValentinKolb/privlock/lib/backend/multi"
	"github.com/ValentinKolb/privlock/lib/backend/noop"
	"github.com/ValentinKolb/privlock/lib/privacy"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	keys := Keys()
	for _, key := range []string{KeyNoop, KeyCommand, KeyScreensaver, KeyBacklight, KeyOverlay, KeyMulti} {
		assert.Contains(t, keys, key)
	}
	assert.IsIncreasing(t, keys)
}

func TestNewUnknown(t *testing.T) {
	_, err := New("does-not-exist", DefaultOptions())
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestRegister(t *testing.T) {
	shared := noop.New()
	Register("backend-test", func(Options) (privacy.IBackend, error) { return shared, nil })

	b, err := New("backend-test", DefaultOptions())
	require.NoError(t, err)
	assert.Same(t, shared, b)

	Register("backend-test-broken", func(Options) (privacy.IBackend, error) { return nil, errors.New("no display") })
	_, err = New("backend-test-broken", DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestCommandNeedsCommands(t *testing.T) {
	_, err := New(KeyCommand, DefaultOptions())
	require.Error(t, err)
}

func TestMultiBackend(t *testing.T) {
	opts := DefaultOptions()

	_, err := New(KeyMulti, opts)
	require.Error(t, err, "multi without members")

	opts.Members = []string{KeyNoop, KeyMulti}
	_, err = New(KeyMulti, opts)
	require.Error(t, err, "multi containing itself")

	opts.Members = []string{KeyNoop}
	opts.OptionalMembers = []string{KeyNoop}
	b, err := New(KeyMulti, opts)
	require.NoError(t, err)
	assert.IsType(t, &multi.Backend{}, b)
	require.NoError(t, b.Enable())
	require.NoError(t, b.Disable())
}

func TestOverlayBackendOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.OverlayTransport = "carrier-pigeon"
	_, err := New(KeyOverlay, opts)
	require.Error(t, err)

	opts = DefaultOptions()
	opts.OverlaySerializer = "xml"
	_, err = New(KeyOverlay, opts)
	require.Error(t, err)

	// the agent is only contacted by Init
	b, err := New(KeyOverlay, DefaultOptions())
	require.NoError(t, err)
	_, ok := b.(privacy.Initializer)
	assert.True(t, ok)
	require.NoError(t, b.(io.Closer).Close())
}

// asyncBackend is a noop backend that reports asynchronous completion
type asyncBackend struct {
	*noop.Backend
	confirmed bool
	closed    bool
}

func (a *asyncBackend) IsAsync() bool            { return true }
func (a *asyncBackend) Confirmed() (bool, error) { return a.confirmed, nil }
func (a *asyncBackend) Close() error             { a.closed = true; return nil }

func TestInstrument(t *testing.T) {
	inner := noop.New()
	r := gometrics.NewRegistry()
	b := Instrument(inner, r, "noop")

	require.NoError(t, b.Enable())
	require.NoError(t, b.Disable())

	inner.Fail(errors.New("enable failed"), errors.New("disable failed"))
	require.Error(t, b.Enable())
	require.Error(t, b.Disable())

	stats := Snapshot(r)
	assert.Equal(t, 2.0, stats["noop.enable.count"])
	assert.Equal(t, 2.0, stats["noop.disable.count"])
	assert.Equal(t, 1.0, stats["noop.enable.failures"])
	assert.Equal(t, 1.0, stats["noop.disable.failures"])
	assert.Contains(t, stats, "noop.enable.mean_ms")
	assert.Contains(t, stats, "noop.disable.p99_ms")

	// plain backends look synchronous and always confirmed
	assert.False(t, b.(privacy.AsyncBackend).IsAsync())
	ok, err := b.(privacy.Confirmer).Confirmed()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, b.(privacy.Initializer).Init())
}

func TestInstrumentForwardsCapabilities(t *testing.T) {
	inner := &asyncBackend{Backend: noop.New()}
	b := Instrument(inner, gometrics.NewRegistry(), "async")

	assert.True(t, b.(privacy.AsyncBackend).IsAsync())

	ok, err := b.(privacy.Confirmer).Confirmed()
	require.NoError(t, err)
	assert.False(t, ok)

	inner.confirmed = true
	ok, err = b.(privacy.Confirmer).Confirmed()
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.(io.Closer).Close())
	assert.True(t, inner.closed)
}
