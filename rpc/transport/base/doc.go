// Package base implements the framed stream transport shared by the tcp and
// unix packages. Those only provide connectors that dial or listen; framing,
// request correlation and connection handling live here.
//
// Every frame starts with a 20 byte header (service id, request id, payload
// length) followed by the payload. Requests are multiplexed: a client keeps
// sending on a connection while earlier responses are outstanding and a
// reader goroutine matches responses to callers by request id.
//
// Client:
//
//   - ConnectionsPerEndpoint connections per endpoint, used round robin.
//   - Failed sends are retried with jittered exponential backoff. A broken
//     connection fails its pending requests and reconnects in the background.
//
// Server:
//
//   - One goroutine per connection reads frames, a bounded number of workers
//     per connection runs the handler. Read buffers come from a sync.Pool.
//   - Connections have no read deadline, a session handler may stay connected
//     for as long as its session lasts. Writes use the configured timeout.
//   - Close stops the listener and closes every open connection.
package base
