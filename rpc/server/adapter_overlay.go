package server

import (
	"fmt"

	"github.com/ValentinKolb/privlock/lib/overlay"
	"github.com/ValentinKolb/privlock/rpc/common"
)

// NewOverlayServerAdapter exposes an overlay controller over RPC
func NewOverlayServerAdapter(controller *overlay.Controller) IRPCServerAdapter {
	return &overlayServerAdapter{controller: controller}
}

type overlayServerAdapter struct {
	controller *overlay.Controller
}

func (adapter *overlayServerAdapter) Handle(req *common.Message) *common.Message {
	switch req.MsgType {
	case common.MsgTOVLSet:
		err := adapter.controller.Set(req.Enabled)
		return common.NewOverlaySetResponse(err)
	case common.MsgTOVLStatus:
		s := adapter.controller.Status()
		return common.NewOverlayStatusResponse(s.Desired, s.Active, s.Pending, s.Async, s.Err)
	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC OverlayAdapter - Unsupported message type: %s", req.MsgType))
	}
}

func (adapter *overlayServerAdapter) Close() error {
	return adapter.controller.Close()
}
