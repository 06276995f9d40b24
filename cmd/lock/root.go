package lock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ValentinKolb/privlock/cmd/util"
	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLock     *client.RPCPrivacyLock
	awaitWindow time.Duration

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:                "lock",
		Short:              "Perform privacy lock operations",
		PersistentPreRunE:  setupLockClient,
		PersistentPostRunE: closeLockClient,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [connId]",
		Short: "Acquire the privacy lock for a connection",
		Long:  "Acquire the privacy lock for a connection. Acquiring a lock the connection already holds succeeds without touching the backend.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [connId]",
		Short: "Release the privacy lock",
		Long:  "Release the privacy lock held by a connection. Releasing with connection id 0 releases the lock whoever holds it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelease,
	}

	// ownerCmd represents the owner command
	ownerCmd = &cobra.Command{
		Use:   "owner",
		Short: "Print the connection currently holding the privacy lock",
		Args:  cobra.NoArgs,
		RunE:  runOwner,
	}

	// statusCmd represents the status command
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print backend, owner and backend statistics of the privacy lock",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(ownerCmd)
	LockCommands.AddCommand(statusCmd)
	LockCommands.AddCommand(perfTestCmd)

	util.SetupRPCClientFlags(LockCommands, 100)

	acquireCmd.Flags().DurationVar(&awaitWindow, "wait", 0, util.WrapString("Wait up to this long until an asynchronous backend confirms privacy mode (0 does not wait)"))
}

// setupLockClient initializes the privacy lock client
func setupLockClient(cmd *cobra.Command, _ []string) error {
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

	rpcLock, err = client.NewRPCPrivacyLock(
		util.GetServiceID(),
		*util.GetClientConfig(),
		t,
		s,
	)
	if err != nil {
		return err
	}

	return rpcLock.Init()
}

func closeLockClient(_ *cobra.Command, _ []string) error {
	if rpcLock == nil {
		return nil
	}
	return rpcLock.Close()
}

// parseConnID parses a connection id argument
func parseConnID(arg string) (privacy.ConnID, error) {
	id, err := strconv.ParseInt(arg, 10, 32)
	if err != nil {
		return privacy.InvalidConnID, fmt.Errorf("invalid connection id %q: %v", arg, err)
	}
	return privacy.ConnID(id), nil
}

// runAcquire handles the acquire command
func runAcquire(_ *cobra.Command, args []string) error {
	connID, err := parseConnID(args[0])
	if err != nil {
		return err
	}

	acquired, err := rpcLock.Acquire(connID)
	if err != nil {
		return fmt.Errorf("failed to acquire privacy lock: %w", err)
	}

	if awaitWindow > 0 && rpcLock.IsAsync() {
		ctx, cancel := context.WithTimeout(context.Background(), awaitWindow)
		defer cancel()

		if err := privacy.AwaitConfirmed(ctx, rpcLock, connID, 0); err != nil {
			fmt.Printf("acquired=%t, confirmed=false\n", acquired)
			return fmt.Errorf("privacy mode not confirmed: %w", err)
		}
		fmt.Printf("acquired=%t, confirmed=true\n", acquired)
		return nil
	}

	fmt.Printf("acquired=%t\n", acquired)
	return nil
}

// runRelease handles the release command
func runRelease(_ *cobra.Command, args []string) error {
	connID, err := parseConnID(args[0])
	if err != nil {
		return err
	}

	rpcLock.Release(connID)
	fmt.Printf("owner=%d\n", rpcLock.CurrentOwner())
	return nil
}

func runOwner(_ *cobra.Command, _ []string) error {
	fmt.Printf("owner=%d\n", rpcLock.CurrentOwner())
	return nil
}

func runStatus(_ *cobra.Command, _ []string) error {
	info, err := rpcLock.Info()
	if err != nil {
		return fmt.Errorf("failed to query privacy lock: %w", err)
	}

	fmt.Printf("backend=%s\n", info.ImplKey)
	fmt.Printf("async=%t\n", info.Async)
	fmt.Printf("owner=%d\n", info.Owner)

	names := make([]string, 0, len(info.Stats))
	for name := range info.Stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s=%g\n", name, info.Stats[name])
	}
	return nil
}
