package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/ValentinKolb/privlock/cmd/util"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/server"
	"github.com/ValentinKolb/privlock/rpc/transport"
	"github.com/ValentinKolb/privlock/rpc/transport/http"
	"github.com/ValentinKolb/privlock/rpc/transport/tcp"
	"github.com/ValentinKolb/privlock/rpc/transport/unix"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start the privlock server",
		Long: `Start the privlock server with the specified configuration.

Every service hosts either a privacy lock (lock(<backend>)) that remote
session handlers acquire and release, or an overlay controller
(overlay(<backend>)) that another privlock server drives through the
overlay backend.

The configuration can be set via command line flags or environment
variables. The format of the environment variables is PRIVLOCK_<flag>
(e.g. PRIVLOCK_SERVICES="100=lock(backlight)")`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "services"
	ServeCmd.PersistentFlags().String(key, "100=lock(noop)", cmdUtil.WrapString("Comma-separated list of services to serve. Format: ID=lock(BACKEND) or ID=overlay(BACKEND), see 'privlock backends' for the available backends"))

	key = "overlay-async"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Overlay services apply state changes in the background and report them through their status"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds for writing responses"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, cmdUtil.DefaultSocket, cmdUtil.WrapString("The address on which the API will listen (e.g. /tmp/privlock.sock, localhost:8080, ...)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address of the HTTP endpoint serving prometheus metrics on /metrics (e.g. localhost:9100). Empty disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	cmdUtil.SetupBackendFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	services, err := common.ParseServices(viper.GetString("services"))
	if err != nil {
		return err
	}

	serveCmdConfig.Services = services
	serveCmdConfig.OverlayAsync = viper.GetBool("overlay-async")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the privlock server
func run(_ *cobra.Command, _ []string) error {
	s, err := serializer.New(viper.GetString("serializer"))
	if err != nil {
		return err
	}

	t, err := newServerTransport(viper.GetString("transport"))
	if err != nil {
		return err
	}

	opts := cmdUtil.GetBackendOptions()
	server.Logger.Debugf("backend options:%s", opts.String())

	return server.NewRPCServer(*serveCmdConfig, opts, t, s).Serve()
}

// newServerTransport returns the server side of a transport by name
func newServerTransport(name string) (transport.IRPCServerTransport, error) {
	switch strings.ToLower(name) {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixDefaultServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", name)
	}
}
