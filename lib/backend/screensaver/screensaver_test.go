package screensaver

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dest = "org.freedesktop.ScreenSaver"

// fakeObject answers D-Bus calls from a table
type fakeObject struct {
	calls   []string
	args    [][]interface{}
	replies map[string]*dbus.Call
}

func (f *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, method)
	f.args = append(f.args, args)
	if reply, ok := f.replies[method]; ok {
		return reply
	}
	return &dbus.Call{Err: errors.New("unknown method " + method)}
}

func reply(values ...interface{}) *dbus.Call {
	return &dbus.Call{Body: values}
}

func TestEnableDisable(t *testing.T) {
	obj := &fakeObject{replies: map[string]*dbus.Call{
		dest + ".GetActive": reply(false),
		dest + ".SetActive": reply(true),
	}}
	b := newWithCaller(dest, obj)

	require.NoError(t, b.Init())
	require.NoError(t, b.Enable())
	require.NoError(t, b.Disable())

	assert.Equal(t, []string{dest + ".GetActive", dest + ".SetActive", dest + ".SetActive"}, obj.calls)
	assert.Equal(t, []interface{}{true}, obj.args[1])
	assert.Equal(t, []interface{}{false}, obj.args[2])
}

func TestInitFailsWithoutService(t *testing.T) {
	b := newWithCaller(dest, &fakeObject{})
	assert.Error(t, b.Init())
}

func TestRefused(t *testing.T) {
	obj := &fakeObject{replies: map[string]*dbus.Call{
		dest + ".SetActive": reply(false),
	}}
	b := newWithCaller(dest, obj)

	err := b.Enable()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}

func TestNotInitialized(t *testing.T) {
	b := New(dest, "/org/freedesktop/ScreenSaver")
	assert.Error(t, b.Enable())
	assert.NoError(t, b.Close())
}
