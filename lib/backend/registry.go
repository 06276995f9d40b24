package backend

import (
	"errors"
	"fmt"
	"slices"

	"github.com/ValentinKolb/privlock/lib/backend/backlight"
	"github.com/ValentinKolb/privlock/lib/backend/command"
	"github.com/ValentinKolb/privlock/lib/backend/multi"
	"github.com/ValentinKolb/privlock/lib/backend/noop"
	"github.com/ValentinKolb/privlock/lib/backend/screensaver"
	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/client"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
)

var Logger = logger.GetLogger("backend")

// Keys of the built-in backends
const (
	KeyNoop        = "noop"
	KeyCommand     = "command"
	KeyScreensaver = "screensaver"
	KeyBacklight   = "backlight"
	KeyOverlay     = "overlay"
	KeyMulti       = "multi"
)

// ErrUnknownBackend is returned by New for keys nobody registered.
var ErrUnknownBackend = errors.New("unknown privacy backend")

// Factory creates a backend from the options.
type Factory func(opts Options) (privacy.IBackend, error)

var factories = xsync.NewMapOf[string, Factory]()

func init() {
	Register(KeyNoop, func(Options) (privacy.IBackend, error) {
		return noop.New(), nil
	})
	Register(KeyCommand, func(o Options) (privacy.IBackend, error) {
		return command.New(command.Config{
			Enable:  o.EnableCommand,
			Disable: o.DisableCommand,
			Shell:   o.Shell,
			Timeout: o.CommandTimeout,
		})
	})
	Register(KeyScreensaver, func(o Options) (privacy.IBackend, error) {
		return screensaver.New(o.DBusDestination, o.DBusPath), nil
	})
	Register(KeyBacklight, func(o Options) (privacy.IBackend, error) {
		return backlight.New(afero.NewOsFs(), o.BacklightDevice, o.StateFile), nil
	})
	Register(KeyOverlay, newOverlayBackend)
	Register(KeyMulti, newMultiBackend)
}

// Register makes a backend available under key. Registering a key twice
// replaces the previous factory.
func Register(key string, factory Factory) {
	if _, loaded := factories.LoadAndStore(key, factory); loaded {
		Logger.Warningf("backend %q registered twice, replacing previous factory", key)
	}
}

// New creates the backend registered under key.
func New(key string, opts Options) (privacy.IBackend, error) {
	factory, ok := factories.Load(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownBackend, key, Keys())
	}

	b, err := factory(opts)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", key, err)
	}
	Logger.Debugf("created %s backend", key)
	return b, nil
}

// Keys returns the sorted keys of all registered backends.
func Keys() []string {
	keys := make([]string, 0, factories.Size())
	factories.Range(func(key string, _ Factory) bool {
		keys = append(keys, key)
		return true
	})
	slices.Sort(keys)
	return keys
}

// --------------------------------------------------------------------------
// Factories that need other packages
// --------------------------------------------------------------------------

// newOverlayBackend connects to an overlay agent
func newOverlayBackend(o Options) (privacy.IBackend, error) {
	s, err := serializer.New(o.OverlaySerializer)
	if err != nil {
		return nil, err
	}
	t, err := client.NewClientTransport(o.OverlayTransport)
	if err != nil {
		return nil, err
	}
	b, err := client.NewRPCOverlayBackend(o.OverlayServiceID, o.OverlayClient, t, s)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// newMultiBackend creates all members and combines them
func newMultiBackend(o Options) (privacy.IBackend, error) {
	if len(o.Members) == 0 {
		return nil, fmt.Errorf("multi backend needs at least one member")
	}

	var members []multi.Member
	add := func(keys []string, optional bool) error {
		for _, key := range keys {
			if key == KeyMulti {
				return fmt.Errorf("multi backend cannot contain itself")
			}
			b, err := New(key, o)
			if err != nil {
				return err
			}
			members = append(members, multi.Member{Name: key, Backend: b, Optional: optional})
		}
		return nil
	}

	if err := add(o.Members, false); err != nil {
		return nil, err
	}
	if err := add(o.OptionalMembers, true); err != nil {
		return nil, err
	}
	return multi.New(members...), nil
}
