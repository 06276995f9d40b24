package backlight

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	device    = "/sys/class/backlight/test"
	stateFile = "/var/lib/privlock/brightness"
)

func newTestBackend(t *testing.T, brightness string) (*Backend, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, device+"/brightness", []byte(brightness), 0o644))
	require.NoError(t, afero.WriteFile(fs, device+"/max_brightness", []byte("255\n"), 0o644))
	return New(fs, device, stateFile), fs
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestDimAndRestore(t *testing.T) {
	b, fs := newTestBackend(t, "120\n")
	require.NoError(t, b.Init())

	require.NoError(t, b.Enable())
	assert.Equal(t, "0", readFile(t, fs, device+"/brightness"))
	assert.Equal(t, "120", readFile(t, fs, stateFile))

	require.NoError(t, b.Disable())
	assert.Equal(t, "120", readFile(t, fs, device+"/brightness"))

	exists, err := afero.Exists(fs, stateFile)
	require.NoError(t, err)
	assert.False(t, exists, "state file should be removed after restore")
}

func TestSecondEnableKeepsOriginal(t *testing.T) {
	b, fs := newTestBackend(t, "80")

	require.NoError(t, b.Enable())
	require.NoError(t, b.Enable())
	assert.Equal(t, "80", readFile(t, fs, stateFile))

	require.NoError(t, b.Disable())
	assert.Equal(t, "80", readFile(t, fs, device+"/brightness"))
}

func TestDisableWithoutEnable(t *testing.T) {
	b, fs := newTestBackend(t, "80")

	require.NoError(t, b.Disable())
	assert.Equal(t, "80", readFile(t, fs, device+"/brightness"))
}

func TestInitRestoresLeftover(t *testing.T) {
	b, fs := newTestBackend(t, "0")
	require.NoError(t, afero.WriteFile(fs, stateFile, []byte("200"), 0o600))

	require.NoError(t, b.Init())
	assert.Equal(t, "200", readFile(t, fs, device+"/brightness"))
}

func TestInitMissingDevice(t *testing.T) {
	b := New(afero.NewMemMapFs(), device, stateFile)
	assert.Error(t, b.Init())
}
