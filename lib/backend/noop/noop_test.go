package noop

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend(t *testing.T) {
	b := New()

	require.NoError(t, b.Enable())
	assert.True(t, b.Enabled())

	require.NoError(t, b.Disable())
	assert.False(t, b.Enabled())

	enables, disables := b.Calls()
	assert.Equal(t, 1, enables)
	assert.Equal(t, 1, disables)
}

func TestBackendFail(t *testing.T) {
	b := New()
	enableErr := errors.New("no display")
	b.Fail(enableErr, nil)

	assert.ErrorIs(t, b.Enable(), enableErr)
	assert.False(t, b.Enabled())

	b.Fail(nil, nil)
	require.NoError(t, b.Enable())
	assert.True(t, b.Enabled())
}
