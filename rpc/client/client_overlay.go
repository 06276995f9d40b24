package client

import (
	"fmt"
	"sync/atomic"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/transport"
)

// OverlayStatus is the state reported by an overlay agent
type OverlayStatus struct {
	Desired bool
	Active  bool
	Pending bool
	Async   bool
	Err     string
}

// NewRPCOverlayBackend creates a privacy backend that drives an overlay agent.
// The transport is connected by Init, so the agent may start after the backend
// was created.
func NewRPCOverlayBackend(
	serviceID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCOverlayBackend, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("overlay backend needs at least one agent endpoint")
	}

	return &RPCOverlayBackend{
		rpcClientAdapter: rpcClientAdapter{
			serviceID:  serviceID,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCOverlayBackend turns the overlay of a remote agent on and off
type RPCOverlayBackend struct {
	rpcClientAdapter
	async atomic.Bool
}

// Compile-time interface checks.
var (
	_ privacy.IBackend     = (*RPCOverlayBackend)(nil)
	_ privacy.Initializer  = (*RPCOverlayBackend)(nil)
	_ privacy.AsyncBackend = (*RPCOverlayBackend)(nil)
	_ privacy.Confirmer    = (*RPCOverlayBackend)(nil)
)

// Init connects to the agent and asks whether it applies changes asynchronously.
func (b *RPCOverlayBackend) Init() error {
	if err := b.transport.Connect(b.config); err != nil {
		return fmt.Errorf("connect to overlay agent: %w", err)
	}

	status, err := b.Status()
	if err != nil {
		return fmt.Errorf("query overlay agent: %w", err)
	}
	b.async.Store(status.Async)

	Logger.Infof("connected to overlay agent (async=%t)", status.Async)
	return nil
}

func (b *RPCOverlayBackend) Enable() error {
	return b.Set(true)
}

func (b *RPCOverlayBackend) Disable() error {
	return b.Set(false)
}

func (b *RPCOverlayBackend) IsAsync() bool {
	return b.async.Load()
}

// Confirmed reports whether the agent shows the overlay and has no change queued.
func (b *RPCOverlayBackend) Confirmed() (bool, error) {
	status, err := b.Status()
	if err != nil {
		return false, err
	}
	if !status.Active && !status.Pending && status.Err != "" {
		return false, fmt.Errorf("overlay agent: %s", status.Err)
	}
	return status.Desired && status.Active && !status.Pending, nil
}

// Status queries the state of the agent.
func (b *RPCOverlayBackend) Status() (*OverlayStatus, error) {
	resp, err := b.invoke(common.NewOverlayStatusRequest())
	if err != nil {
		return nil, err
	}
	return &OverlayStatus{
		Desired: resp.Enabled,
		Active:  resp.Active,
		Pending: resp.Pending,
		Async:   resp.Async,
		Err:     resp.Detail,
	}, nil
}

// Set turns the overlay on or off.
func (b *RPCOverlayBackend) Set(enabled bool) error {
	_, err := b.invoke(common.NewOverlaySetRequest(enabled))
	return err
}

// Close closes the transport.
func (b *RPCOverlayBackend) Close() error {
	return b.transport.Close()
}
