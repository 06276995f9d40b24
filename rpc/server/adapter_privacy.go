package server

import (
	"fmt"
	"io"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/common"
)

// NewPrivacyLockServerAdapter exposes lock over RPC. stats is called for
// Info requests and may be nil.
func NewPrivacyLockServerAdapter(lock privacy.IPrivacyLock, stats func() map[string]float64) IRPCServerAdapter {
	return &privacyLockServerAdapter{lock: lock, stats: stats}
}

type privacyLockServerAdapter struct {
	lock  privacy.IPrivacyLock
	stats func() map[string]float64
}

func (adapter *privacyLockServerAdapter) Handle(req *common.Message) *common.Message {
	connID := privacy.ConnID(req.ConnID)

	switch req.MsgType {
	case common.MsgTPRVAcquire:
		ok, err := adapter.lock.Acquire(connID)
		return common.NewAcquireResponse(ok, err)
	case common.MsgTPRVRelease:
		adapter.lock.Release(connID)
		return common.NewReleaseResponse()
	case common.MsgTPRVOwner:
		return common.NewOwnerResponse(adapter.lock.CurrentOwner())
	case common.MsgTPRVConfirmed:
		ok, err := adapter.lock.Confirmed(connID)
		return common.NewConfirmedResponse(ok, err)
	case common.MsgTPRVInfo:
		var stats map[string]float64
		if adapter.stats != nil {
			stats = adapter.stats()
		}
		return common.NewInfoResponse(adapter.lock.ImplKey(), adapter.lock.IsAsync(), adapter.lock.CurrentOwner(), stats)
	default:
		return common.NewErrorResponse(fmt.Sprintf("RPC PrivacyLockAdapter - Unsupported message type: %s", req.MsgType))
	}
}

func (adapter *privacyLockServerAdapter) Close() error {
	if closer, ok := adapter.lock.(io.Closer); ok {
		return closer.Close()
	}
	adapter.lock.Teardown()
	return nil
}
