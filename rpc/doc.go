// Package rpc connects privacy locks and overlay agents that live in different
// processes. A privlock server hosts services (a privacy lock or an overlay
// controller, each with its own backend) and clients address them by service id.
//
// Subpackages:
//
//   - common: the Message protocol, error reason codes, server and client
//     configuration and the logger setup shared by all packages.
//
//   - serializer: Message codecs (binary, JSON, gob).
//
//   - transport: the framed stream transport used over TCP and Unix sockets,
//     and an HTTP transport.
//
//   - server: hosts the configured services and routes requests to them.
//
//   - client: RPCPrivacyLock for session handlers in other processes and
//     RPCOverlayBackend, the privacy backend that drives a remote overlay agent.
package rpc
