package backend

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/privlock/rpc/common"
)

// Options holds the configuration of all built-in backends. Every factory
// only reads the fields it needs.
type Options struct {
	// command backend
	EnableCommand  string
	DisableCommand string
	Shell          string
	CommandTimeout time.Duration

	// backlight backend
	BacklightDevice string // e.g. /sys/class/backlight/intel_backlight
	StateFile       string // where the original brightness is kept while dimmed

	// screensaver backend
	DBusDestination string
	DBusPath        string

	// overlay backend (client of an overlay agent)
	OverlayServiceID  uint64
	OverlayClient     common.ClientConfig
	OverlayTransport  string
	OverlaySerializer string

	// multi backend
	Members         []string // created and enabled in order
	OptionalMembers []string // failures of these members are only logged
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Shell:             "/bin/sh",
		CommandTimeout:    5 * time.Second,
		BacklightDevice:   "/sys/class/backlight/intel_backlight",
		StateFile:         "/var/lib/privlock/brightness",
		DBusDestination:   "org.freedesktop.ScreenSaver",
		DBusPath:          "/org/freedesktop/ScreenSaver",
		OverlayServiceID:  200,
		OverlayTransport:  "unix",
		OverlaySerializer: "binary",
		OverlayClient: common.ClientConfig{
			Endpoints:     []string{"/tmp/privlock-overlay.sock"},
			TimeoutSecond: 5,
			RetryCount:    3,
		},
	}
}

// String returns a formatted string representation of the options
func (o *Options) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Command Backend")
	addField("Enable", o.EnableCommand)
	addField("Disable", o.DisableCommand)
	addField("Shell", o.Shell)
	addField("Timeout", o.CommandTimeout.String())

	addSection("Backlight Backend")
	addField("Device", o.BacklightDevice)
	addField("State File", o.StateFile)

	addSection("Screensaver Backend")
	addField("Destination", o.DBusDestination)
	addField("Path", o.DBusPath)

	addSection("Overlay Backend")
	addField("Service ID", fmt.Sprintf("%d", o.OverlayServiceID))
	addField("Endpoints", strings.Join(o.OverlayClient.Endpoints, ","))
	addField("Transport", o.OverlayTransport)
	addField("Serializer", o.OverlaySerializer)

	addSection("Multi Backend")
	addField("Members", strings.Join(o.Members, ","))
	addField("Optional Members", strings.Join(o.OptionalMembers, ","))

	return sb.String()
}
