package server

import (
	"github.com/ValentinKolb/privlock/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for handling requests and responses of one service
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// If an error occurs, it should be set in the response
	Handle(req *common.Message) (resp *common.Message)
	// Close releases the resources of the service. For locks this
	// turns privacy mode off.
	Close() error
}
