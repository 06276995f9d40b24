// Package common provides the data structures shared by the privlock RPC
// server and its clients.
//
// The package focuses on:
//   - Message protocol definition for privacy lock and overlay operations
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Message: Core data structure for all RPC communication. A single struct is
//     used for requests and responses; the MessageType decides which fields are
//     meaningful. Factory functions create the request and response variants.
//
//   - ErrorReason: Classification of response errors. Clients use
//     Message.ResponseError to rebuild errors that wrap the sentinel errors of
//     the privacy package (ErrAlreadyHeld, ErrBackendUnavailable, ErrNotOwner).
//
//   - ServerConfig: Services hosted by a server (id, lock or overlay, backend key),
//     endpoints and timeouts. ParseServices reads the command line notation
//     "100=lock(noop),200=overlay(backlight)".
//
//   - ClientConfig: Connection parameters, timeouts, and retry behavior.
//
//   - Logger: Custom logger factory producing "LEVEL | name | message" lines for
//     every package logger obtained through logger.GetLogger.
package common
