// Package overlay implements the agent side of overlay backends.
//
// An overlay agent runs in the process that owns the display (for example the
// user's graphical session) and exposes a Controller over RPC. A privacy lock
// in another process drives it through the overlay backend of rpc/client.
//
// The Controller keeps a desired state and converges a local backend towards
// it. In sync mode Set performs the backend call before returning. In async
// mode Set records the desired state and returns at once; one worker goroutine
// applies the most recent state, so a burst of on/off requests results in at
// most one transition per change that is still wanted when the worker gets to
// it. A disable that fails still marks the overlay inactive.
package overlay
