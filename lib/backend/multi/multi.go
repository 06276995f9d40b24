// Package multi combines several backends into one, for example blanking the
// screensaver and dimming the backlight at the same time.
package multi

import (
	"fmt"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("backend/multi")

// Member is a backend that is part of a multi backend. Failures of optional
// members are only logged.
type Member struct {
	Name     string
	Backend  privacy.IBackend
	Optional bool
}

// Backend enables its members in order and disables them in reverse order.
type Backend struct {
	members []Member
}

// Compile-time interface checks.
var (
	_ privacy.IBackend    = (*Backend)(nil)
	_ privacy.Initializer = (*Backend)(nil)
)

// New creates a multi backend.
func New(members ...Member) *Backend {
	return &Backend{members: members}
}

// Init initializes all members that need it. Optional members that fail to
// initialize are dropped. If a required member fails, the members initialized
// so far are closed again and the member list is left unchanged.
func (b *Backend) Init() error {
	kept := make([]Member, 0, len(b.members))
	for _, m := range b.members {
		initializer, ok := m.Backend.(privacy.Initializer)
		if !ok {
			kept = append(kept, m)
			continue
		}
		if err := initializer.Init(); err != nil {
			if m.Optional {
				Logger.Warningf("dropping optional member %s: %v", m.Name, err)
				continue
			}
			result := multierror.Append(nil, fmt.Errorf("init member %s: %w", m.Name, err))
			if closeErr := closeAll(kept); closeErr != nil {
				result = multierror.Append(result, closeErr)
			}
			return result.ErrorOrNil()
		}
		kept = append(kept, m)
	}
	b.members = kept
	return nil
}

// Enable enables all members. If a required member fails, the members
// enabled so far are disabled again and the error is returned.
func (b *Backend) Enable() error {
	for i, m := range b.members {
		err := m.Backend.Enable()
		if err == nil {
			continue
		}
		if m.Optional {
			Logger.Warningf("optional member %s failed to enable: %v", m.Name, err)
			continue
		}

		result := multierror.Append(nil, fmt.Errorf("enable %s: %w", m.Name, err))
		if rbErr := disableAll(b.members[:i]); rbErr != nil {
			result = multierror.Append(result, fmt.Errorf("rollback: %w", rbErr))
		}
		return result.ErrorOrNil()
	}
	return nil
}

// Disable disables all members, also after failures. Only failures of
// required members are returned.
func (b *Backend) Disable() error {
	return disableAll(b.members)
}

// Close closes all members that hold resources.
func (b *Backend) Close() error {
	return closeAll(b.members)
}

// closeAll closes the members that implement io.Closer
func closeAll(members []Member) error {
	var result *multierror.Error
	for _, m := range members {
		if c, ok := m.Backend.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				result = multierror.Append(result, fmt.Errorf("close %s: %w", m.Name, err))
			}
		}
	}
	return result.ErrorOrNil()
}

// disableAll disables members in reverse order
func disableAll(members []Member) error {
	var result *multierror.Error
	for i := len(members) - 1; i >= 0; i-- {
		m := members[i]
		err := m.Backend.Disable()
		if err == nil {
			continue
		}
		if m.Optional {
			Logger.Warningf("optional member %s failed to disable: %v", m.Name, err)
			continue
		}
		result = multierror.Append(result, fmt.Errorf("disable %s: %w", m.Name, err))
	}
	return result.ErrorOrNil()
}
