package util

import (
	"strings"

	"github.com/ValentinKolb/privlock/lib/backend"
	"github.com/ValentinKolb/privlock/rpc/client"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/transport"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultSocket is the endpoint used by server and clients when nothing is configured
	DefaultSocket = "/tmp/privlock.sock"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		if lineWidth > 0 && lineWidth+1+len(word) > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += len(word)
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read PRIVLOCK_* environment variables
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("privlock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// splitList splits a comma separated flag value and drops empty entries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// --------------------------------------------------------------------------
// RPC client flags
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command, defaultServiceID int) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "service"
	cmd.PersistentFlags().Int(key, defaultServiceID, WrapString("ID of the service to connect to"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, DefaultSocket, WrapString("The address of the privlock server. Multiple endpoints can be specified as a comma-separated list"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (ignored for http)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("The level at which client logs will be output (debug, info, warn, error)"))
}

// InitClientLoggers sets the level of the client side loggers
func InitClientLoggers() error {
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoints:              splitList(viper.GetString("transport-endpoints")),
		TimeoutSecond:          viper.GetInt("timeout"),
		RetryCount:             viper.GetInt("transport-retries"),
		ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
	}
}

// GetServiceID retrieves the configured service ID
func GetServiceID() uint64 {
	return uint64(viper.GetInt("service"))
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	return serializer.New(viper.GetString("serializer"))
}

// GetTransport creates a client transport based on configuration
func GetTransport() (transport.IRPCClientTransport, error) {
	return client.NewClientTransport(viper.GetString("transport"))
}

// --------------------------------------------------------------------------
// Backend flags
// --------------------------------------------------------------------------

// SetupBackendFlags adds the options of all built-in backends to a command
func SetupBackendFlags(cmd *cobra.Command) {
	def := backend.DefaultOptions()
	flags := cmd.PersistentFlags()

	flags.String("command-enable", def.EnableCommand, WrapString("(command backend) Shell command that turns privacy mode on (e.g. 'xset dpms force off')"))
	flags.String("command-disable", def.DisableCommand, WrapString("(command backend) Shell command that turns privacy mode off"))
	flags.String("command-shell", def.Shell, WrapString("(command backend) Shell used to run the commands"))
	flags.Duration("command-timeout", def.CommandTimeout, WrapString("(command backend) Maximum run time of a single command"))

	flags.String("backlight-device", def.BacklightDevice, WrapString("(backlight backend) sysfs directory of the backlight device"))
	flags.String("backlight-state-file", def.StateFile, WrapString("(backlight backend) File that keeps the original brightness while dimmed"))

	flags.String("dbus-destination", def.DBusDestination, WrapString("(screensaver backend) D-Bus name of the screensaver service"))
	flags.String("dbus-path", def.DBusPath, WrapString("(screensaver backend) D-Bus object path of the screensaver service"))

	flags.Uint64("overlay-service", def.OverlayServiceID, WrapString("(overlay backend) Service ID of the overlay agent"))
	flags.String("overlay-endpoints", strings.Join(def.OverlayClient.Endpoints, ","), WrapString("(overlay backend) Comma-separated endpoints of the overlay agent"))
	flags.String("overlay-transport", def.OverlayTransport, WrapString("(overlay backend) Transport used to reach the agent (unix, tcp, http)"))
	flags.String("overlay-serializer", def.OverlaySerializer, WrapString("(overlay backend) Serializer used to talk to the agent (binary, json, gob)"))
	flags.Int("overlay-timeout", def.OverlayClient.TimeoutSecond, WrapString("(overlay backend) Request timeout in seconds"))
	flags.Int("overlay-retries", def.OverlayClient.RetryCount, WrapString("(overlay backend) How many times to retry a request"))

	flags.String("multi-members", "", WrapString("(multi backend) Comma-separated backends that must all succeed, enabled in order"))
	flags.String("multi-optional", "", WrapString("(multi backend) Comma-separated backends whose failures are only logged"))
}

// GetBackendOptions reads the backend options from viper
func GetBackendOptions() backend.Options {
	opts := backend.DefaultOptions()

	opts.EnableCommand = viper.GetString("command-enable")
	opts.DisableCommand = viper.GetString("command-disable")
	opts.Shell = viper.GetString("command-shell")
	opts.CommandTimeout = viper.GetDuration("command-timeout")

	opts.BacklightDevice = viper.GetString("backlight-device")
	opts.StateFile = viper.GetString("backlight-state-file")

	opts.DBusDestination = viper.GetString("dbus-destination")
	opts.DBusPath = viper.GetString("dbus-path")

	opts.OverlayServiceID = viper.GetUint64("overlay-service")
	opts.OverlayTransport = viper.GetString("overlay-transport")
	opts.OverlaySerializer = viper.GetString("overlay-serializer")
	opts.OverlayClient = common.ClientConfig{
		Endpoints:     splitList(viper.GetString("overlay-endpoints")),
		TimeoutSecond: viper.GetInt("overlay-timeout"),
		RetryCount:    viper.GetInt("overlay-retries"),
	}

	opts.Members = splitList(viper.GetString("multi-members"))
	opts.OptionalMembers = splitList(viper.GetString("multi-optional"))

	return opts
}
