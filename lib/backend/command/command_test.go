package command

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresEnableCommand(t *testing.T) {
	_, err := New(Config{Disable: "true"})
	assert.Error(t, err)
}

func TestEnableDisable(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "obscured")

	b, err := New(Config{
		Enable:  "touch " + marker,
		Disable: "rm " + marker,
	})
	require.NoError(t, err)

	require.NoError(t, b.Enable())
	assert.FileExists(t, marker)

	require.NoError(t, b.Disable())
	_, err = os.Stat(marker)
	assert.True(t, os.IsNotExist(err), "marker should be removed by disable")
}

func TestFailingCommand(t *testing.T) {
	b, err := New(Config{Enable: "echo no display >&2; exit 3"})
	require.NoError(t, err)

	err = b.Enable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no display")
}

func TestEmptyDisableIsNoop(t *testing.T) {
	b, err := New(Config{Enable: "true"})
	require.NoError(t, err)
	assert.NoError(t, b.Disable())
}

func TestTimeout(t *testing.T) {
	b, err := New(Config{Enable: "sleep 5", Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	err = b.Enable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Less(t, time.Since(start), 3*time.Second)
}
