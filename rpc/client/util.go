package client

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/transport"
	"github.com/ValentinKolb/privlock/rpc/transport/http"
	"github.com/ValentinKolb/privlock/rpc/transport/tcp"
	"github.com/ValentinKolb/privlock/rpc/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// TransportNames lists the transport names accepted by NewClientTransport
var TransportNames = []string{"unix", "tcp", "http"}

// NewClientTransport returns a new client transport by name (unix, tcp or http)
func NewClientTransport(name string) (transport.IRPCClientTransport, error) {
	switch strings.ToLower(name) {
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "http":
		return http.NewHttpClientTransport(), nil
	default:
		return nil, fmt.Errorf("unknown transport %q: must be one of %s", name, strings.Join(TransportNames, ", "))
	}
}

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCPrivacyLock and RPCOverlayBackend with composition pattern
type rpcClientAdapter struct {
	serviceID  uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invoke sends req to the service of the adapter
func (a *rpcClientAdapter) invoke(req *common.Message) (*common.Message, error) {
	return invokeRPCRequest(a.serviceID, req, a.transport, a.serializer)
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a service ID, a request message, a transport layer and a serializer as parameters.
// If the server answered, the response is returned even when it carries an error,
// the error then wraps the matching privacy sentinel (see common.Message.ResponseError).
func invokeRPCRequest(serviceID uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	respBytes, err := transport.Send(serviceID, reqBytes)
	if err != nil {
		return nil, err
	}

	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("RPC client - invalid response: %w", err)
	}

	if resp.MsgType == common.MsgTError {
		return nil, fmt.Errorf("RPC client - server error: %s", resp.Err)
	}

	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC client - unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	return resp, resp.ResponseError()
}
