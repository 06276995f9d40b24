// Package server implements the RPC server of privlock. It hosts privacy locks
// and overlay controllers as services and routes requests to them by service id.
//
// The package focuses on:
//   - Server-side RPC request handling for privacy lock and overlay operations
//   - Adapter pattern to decouple the lock and overlay logic from RPC mechanisms
//   - Creating backends from the backend registry based on the service configuration
//   - Orderly shutdown: every lock is torn down and every overlay turned off
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for all server adapters,
//     with the Handle method that processes incoming requests and Close.
//
//   - NewPrivacyLockServerAdapter: Adapter translating RPC requests to
//     privacy.IPrivacyLock method calls. Errors carry a reason code, so remote
//     callers can test them with errors.Is against the privacy sentinels.
//
//   - NewOverlayServerAdapter: Adapter for overlay.Controller (set and status).
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Every backend is wrapped with backend.Instrument, so Info responses carry
// latency and failure statistics. With a metrics endpoint configured the
// server also serves the lock counters and process metrics on /metrics.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Services: []common.ServerService{
//	    {ServiceID: 100, Type: common.ServiceTypeLock, Backend: "backlight"},
//	    {ServiceID: 200, Type: common.ServiceTypeOverlay, Backend: "screensaver"},
//	  },
//	  Endpoint:      "/run/privlock.sock",
//	  TimeoutSecond: 5,
//	  LogLevel:      "info",
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  backend.DefaultOptions(),
//	  unix.NewUnixDefaultServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// A backend key may only be used by one service of a server.
//
// Thread Safety:
//
//	The server is safe for concurrent requests across multiple connections.
//	Serve should be called only once.
package server
