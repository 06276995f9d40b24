// Package backlight provides a backend that dims a sysfs backlight device to
// zero. The original brightness is saved to a state file before dimming and
// restored on disable, so a crashed host can still restore it on the next
// start by calling Disable.
package backlight

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/afero"
)

var Logger = logger.GetLogger("backend/backlight")

// Backend dims a backlight device such as /sys/class/backlight/intel_backlight.
type Backend struct {
	fs        afero.Fs
	device    string
	stateFile string
	mu        sync.Mutex
}

// Compile-time interface checks.
var (
	_ privacy.IBackend    = (*Backend)(nil)
	_ privacy.Initializer = (*Backend)(nil)
)

// New creates a backlight backend. device is the sysfs directory of the
// backlight, stateFile the file keeping the original brightness.
func New(fs afero.Fs, device, stateFile string) *Backend {
	return &Backend{
		fs:        fs,
		device:    device,
		stateFile: stateFile,
	}
}

// Init checks that the device exists and restores a brightness left over by
// a previous run that did not disable the backend.
func (b *Backend) Init() error {
	maxBrightness, err := b.readInt(filepath.Join(b.device, "max_brightness"))
	if err != nil {
		return fmt.Errorf("backlight device %s: %w", b.device, err)
	}
	Logger.Debugf("backlight %s available (max=%d)", b.device, maxBrightness)

	if ok, _ := afero.Exists(b.fs, b.stateFile); ok {
		Logger.Warningf("found saved brightness in %s, restoring", b.stateFile)
		return b.Disable()
	}
	return nil
}

func (b *Backend) Enable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// keep the first saved value, a second enable must not store 0 as original
	saved, err := afero.Exists(b.fs, b.stateFile)
	if err != nil {
		return err
	}
	if !saved {
		current, err := b.readInt(b.brightnessFile())
		if err != nil {
			return fmt.Errorf("read brightness: %w", err)
		}
		if err := b.fs.MkdirAll(filepath.Dir(b.stateFile), 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
		if err := afero.WriteFile(b.fs, b.stateFile, []byte(strconv.Itoa(current)), 0o600); err != nil {
			return fmt.Errorf("save brightness: %w", err)
		}
		Logger.Debugf("saved brightness %d to %s", current, b.stateFile)
	}

	if err := afero.WriteFile(b.fs, b.brightnessFile(), []byte("0"), 0o644); err != nil {
		return fmt.Errorf("dim backlight: %w", err)
	}
	return nil
}

func (b *Backend) Disable() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	original, err := b.readInt(b.stateFile)
	if os.IsNotExist(err) {
		return nil // never dimmed
	}
	if err != nil {
		return fmt.Errorf("read saved brightness: %w", err)
	}

	if err := afero.WriteFile(b.fs, b.brightnessFile(), []byte(strconv.Itoa(original)), 0o644); err != nil {
		return fmt.Errorf("restore brightness %d: %w", original, err)
	}
	if err := b.fs.Remove(b.stateFile); err != nil {
		return fmt.Errorf("remove state file: %w", err)
	}
	Logger.Debugf("restored brightness %d", original)
	return nil
}

func (b *Backend) brightnessFile() string {
	return filepath.Join(b.device, "brightness")
}

func (b *Backend) readInt(path string) (int, error) {
	data, err := afero.ReadFile(b.fs, path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}
