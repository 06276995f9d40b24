package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ValentinKolb/privlock/cmd/lock"
	"github.com/ValentinKolb/privlock/cmd/overlay"
	"github.com/ValentinKolb/privlock/cmd/serve"
	"github.com/ValentinKolb/privlock/cmd/util"
	"github.com/ValentinKolb/privlock/lib/backend"
	"github.com/ValentinKolb/privlock/rpc/client"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "privlock",
		Short: "exclusive privacy mode for remote sessions",
		Long: fmt.Sprintf(`privlock (v%s)

An exclusive privacy lock for remote-access hosts. While a remote session
holds the lock, a platform backend hides the local display (screensaver,
backlight, overlay agent or custom commands). Only one session may hold
the lock at a time and releasing it always succeeds.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of privlock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("privlock v%s\n", Version)
		},
	}
	backendsCmd = &cobra.Command{
		Use:   "backends",
		Short: "List the available privacy backends",
		Run: func(cmd *cobra.Command, args []string) {
			for _, key := range backend.Keys() {
				fmt.Println(key)
			}
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(overlay.OverlayCommands)
	RootCmd.AddCommand(backendsCmd)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString(fmt.Sprintf("serializer to use (%s)", strings.Join(serializer.Names, ", "))))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "unix", util.WrapString(fmt.Sprintf("transport to use (%s)", strings.Join(client.TransportNames, ", "))))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
