package transport

import (
	"github.com/ValentinKolb/privlock/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a serviceID and a request as parameters and returns a response
type ServerHandleFunc func(serviceID uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when a request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks while serving requests.
	// It returns nil once Close was called.
	Listen(config common.ServerConfig) error
	// Close stops accepting requests and closes open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(serviceID uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
