// Package screensaver provides a backend that blanks the display by activating
// the desktop screensaver over the D-Bus session bus
// (org.freedesktop.ScreenSaver.SetActive). This works on most Linux desktops
// (GNOME, KDE, XFCE, ...) without extra permissions.
package screensaver

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/godbus/dbus/v5"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend/screensaver")

// caller is the part of dbus.BusObject the backend needs
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Backend toggles the screensaver of the session.
type Backend struct {
	destination string
	path        dbus.ObjectPath

	mu   sync.Mutex
	conn *dbus.Conn
	obj  caller
}

// Compile-time interface checks.
var (
	_ privacy.IBackend    = (*Backend)(nil)
	_ privacy.Initializer = (*Backend)(nil)
)

// New creates a screensaver backend for the given D-Bus service. The session
// bus is connected in Init.
func New(destination, path string) *Backend {
	return &Backend{
		destination: destination,
		path:        dbus.ObjectPath(path),
	}
}

// newWithCaller creates a backend using obj instead of a bus connection
func newWithCaller(destination string, obj caller) *Backend {
	return &Backend{destination: destination, obj: obj}
}

// Init connects to the session bus and checks that the screensaver service
// answers.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.obj == nil {
		conn, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("connect to D-Bus session bus: %w", err)
		}
		b.conn = conn
		b.obj = conn.Object(b.destination, b.path)
	}

	var active bool
	if err := b.obj.Call(b.destination+".GetActive", 0).Store(&active); err != nil {
		return fmt.Errorf("screensaver %s not available: %w", b.destination, err)
	}
	Logger.Debugf("screensaver %s available (active=%t)", b.destination, active)
	return nil
}

func (b *Backend) Enable() error {
	return b.setActive(true)
}

func (b *Backend) Disable() error {
	return b.setActive(false)
}

// Close closes the session bus connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.obj = nil
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Backend) setActive(active bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.obj == nil {
		return fmt.Errorf("screensaver backend not initialized")
	}

	var accepted bool
	if err := b.obj.Call(b.destination+".SetActive", 0, active).Store(&accepted); err != nil {
		return fmt.Errorf("SetActive(%t): %w", active, err)
	}
	if !accepted {
		return fmt.Errorf("SetActive(%t) refused by %s", active, b.destination)
	}
	return nil
}
