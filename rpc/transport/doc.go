// Package transport defines the interfaces for RPC communication between the
// privlock server and its clients. Implementations live in the sub packages
// http, tcp and unix; tcp and unix share the framed transport of package base.
//
// Requests are addressed to a service id. The server side routes each id to
// the privacy lock or overlay controller it hosts.
package transport
