package client

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/ValentinKolb/privlock/rpc/serializer"
	"github.com/ValentinKolb/privlock/rpc/transport"
)

// LockInfo describes a remote privacy lock
type LockInfo struct {
	ImplKey string
	Async   bool
	Owner   privacy.ConnID
	Stats   map[string]float64
}

// NewRPCPrivacyLock creates a new RPC privacy lock
// The function takes a service ID, a client config, a transport and a serializer as parameters.
// The transport is connected right away.
func NewRPCPrivacyLock(
	serviceID uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCPrivacyLock, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}

	return &RPCPrivacyLock{
		rpcClientAdapter: rpcClientAdapter{
			serviceID:  serviceID,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// RPCPrivacyLock is a privacy.IPrivacyLock hosted by a privlock server.
// Session handlers in other processes use it exactly like a local lock.
type RPCPrivacyLock struct {
	rpcClientAdapter

	infoMu sync.Mutex
	info   *LockInfo
}

// Compile-time interface check.
var _ privacy.IPrivacyLock = (*RPCPrivacyLock)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see the privacy package in interface.go)
// --------------------------------------------------------------------------

// Init fetches the backend description of the remote lock.
// The backend itself is initialized by the server.
func (l *RPCPrivacyLock) Init() error {
	_, err := l.Info()
	return err
}

func (l *RPCPrivacyLock) Acquire(connID privacy.ConnID) (bool, error) {
	resp, err := l.invoke(common.NewAcquireRequest(connID))
	if resp == nil && err != nil {
		return false, fmt.Errorf("%w: %w", privacy.ErrBackendUnavailable, err)
	}
	return resp.Ok, err
}

func (l *RPCPrivacyLock) Release(connID privacy.ConnID) {
	if _, err := l.invoke(common.NewReleaseRequest(connID)); err != nil {
		Logger.Warningf("failed to release privacy lock for connection %d: %v", connID, err)
	}
}

func (l *RPCPrivacyLock) CurrentOwner() privacy.ConnID {
	resp, err := l.invoke(common.NewOwnerRequest())
	if err != nil {
		Logger.Warningf("failed to query privacy lock owner: %v", err)
		return privacy.InvalidConnID
	}
	return privacy.ConnID(resp.ConnID)
}

func (l *RPCPrivacyLock) Confirmed(connID privacy.ConnID) (bool, error) {
	resp, err := l.invoke(common.NewConfirmedRequest(connID))
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (l *RPCPrivacyLock) IsAsync() bool {
	info, err := l.cachedInfo()
	if err != nil {
		return false
	}
	return info.Async
}

func (l *RPCPrivacyLock) ImplKey() string {
	info, err := l.cachedInfo()
	if err != nil {
		return ""
	}
	return info.ImplKey
}

func (l *RPCPrivacyLock) Teardown() {
	l.Release(privacy.InvalidConnID)
}

// --------------------------------------------------------------------------
// Client specific methods
// --------------------------------------------------------------------------

// Info queries the backend key, async mode, current owner and backend stats.
func (l *RPCPrivacyLock) Info() (*LockInfo, error) {
	resp, err := l.invoke(common.NewInfoRequest())
	if err != nil {
		return nil, err
	}

	info := &LockInfo{
		ImplKey: resp.Key,
		Async:   resp.Async,
		Owner:   privacy.ConnID(resp.ConnID),
		Stats:   resp.Stats,
	}

	l.infoMu.Lock()
	l.info = info
	l.infoMu.Unlock()
	return info, nil
}

// Close closes the transport. The remote lock is not released.
func (l *RPCPrivacyLock) Close() error {
	return l.transport.Close()
}

// cachedInfo returns the last fetched info, fetching it once if needed
func (l *RPCPrivacyLock) cachedInfo() (*LockInfo, error) {
	l.infoMu.Lock()
	info := l.info
	l.infoMu.Unlock()

	if info != nil {
		return info, nil
	}

	info, err := l.Info()
	if err != nil {
		Logger.Warningf("failed to query privacy lock info: %v", err)
		return nil, fmt.Errorf("%w: %w", privacy.ErrBackendUnavailable, err)
	}
	return info, nil
}
