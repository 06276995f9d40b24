// Package client implements RPC clients for privlock servers and overlay agents.
//
// The package focuses on:
//   - Transparent RPC access to a privacy lock hosted by a privlock server
//   - Driving a remote overlay agent as a privacy backend
//   - Converting error responses back into the sentinel errors of package privacy
//
// Key Components:
//
//   - NewRPCPrivacyLock: Creates a client implementing privacy.IPrivacyLock.
//     Session handlers running in other processes acquire and release the host
//     lock through it. Errors wrap privacy.ErrAlreadyHeld and
//     privacy.ErrBackendUnavailable like the local lock does, so callers can
//     use errors.Is. Transport failures during Acquire are reported as
//     privacy.ErrBackendUnavailable.
//
//   - NewRPCOverlayBackend: Creates a privacy backend that turns the overlay
//     of an agent on and off (backend key "overlay"). The agent decides whether
//     changes are applied asynchronously; the backend learns it in Init and
//     implements privacy.Confirmer by querying the agent status.
//
//   - NewClientTransport: Looks up a client transport by name (unix, tcp, http).
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoints:     []string{"/run/privlock.sock"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	lock, err := client.NewRPCPrivacyLock(100, config, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  return err
//	}
//	defer lock.Close()
//
//	if ok, err := lock.Acquire(connID); !ok {
//	  return err
//	}
//	defer lock.Release(connID)
//
// Thread Safety:
//
//	All client implementations are thread-safe and can be used concurrently from
//	multiple goroutines without additional synchronization.
package client
