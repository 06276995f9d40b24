// Package cmd implements the command-line interface of privlock. It provides
// a hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the privlock server
//   - lock: Commands for privacy lock operations (acquire, release, owner, status, perf)
//   - overlay: Commands for driving an overlay service directly (on, off, status)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See privlock -help for a list of all commands.
package cmd
