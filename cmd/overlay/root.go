package overlay

import (
	"fmt"

	"github.com/ValentinKolb/privlock/cmd/util"
	"github.com/ValentinKolb/privlock/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcOverlay *client.RPCOverlayBackend

	// OverlayCommands represents the overlay command group
	OverlayCommands = &cobra.Command{
		Use:   "overlay",
		Short: "Control an overlay service directly",
		Long: `Turn the overlay of an overlay service on or off without going through a
privacy lock. Meant for testing agents; sessions should use 'privlock lock'.`,
		PersistentPreRunE:  setupOverlayClient,
		PersistentPostRunE: closeOverlayClient,
	}

	onCmd = &cobra.Command{
		Use:   "on",
		Short: "Show the overlay",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSet(true)
		},
	}

	offCmd = &cobra.Command{
		Use:   "off",
		Short: "Hide the overlay",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSet(false)
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print the state of the overlay service",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	OverlayCommands.AddCommand(onCmd)
	OverlayCommands.AddCommand(offCmd)
	OverlayCommands.AddCommand(statusCmd)

	util.SetupRPCClientFlags(OverlayCommands, 200)
}

// setupOverlayClient connects to the overlay service
func setupOverlayClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := util.InitClientLoggers(); err != nil {
		return err
	}

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcOverlay, err = client.NewRPCOverlayBackend(
		util.GetServiceID(),
		*util.GetClientConfig(),
		t,
		s,
	)
	if err != nil {
		return err
	}

	return rpcOverlay.Init()
}

func closeOverlayClient(_ *cobra.Command, _ []string) error {
	if rpcOverlay == nil {
		return nil
	}
	return rpcOverlay.Close()
}

func runSet(enabled bool) error {
	if err := rpcOverlay.Set(enabled); err != nil {
		return fmt.Errorf("failed to set overlay: %w", err)
	}
	return runStatus(nil, nil)
}

func runStatus(_ *cobra.Command, _ []string) error {
	status, err := rpcOverlay.Status()
	if err != nil {
		return fmt.Errorf("failed to query overlay: %w", err)
	}

	fmt.Printf("desired=%t\n", status.Desired)
	fmt.Printf("active=%t\n", status.Active)
	fmt.Printf("pending=%t\n", status.Pending)
	fmt.Printf("async=%t\n", status.Async)
	if status.Err != "" {
		fmt.Printf("error=%s\n", status.Err)
	}
	return nil
}
