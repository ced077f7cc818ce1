// Package server implements the HTTP and WebSocket transport of the relay.
//
// The implementation is organized into specialized files for the hub,
// clients, origin policy, routing, and HTTP handlers. Room membership and
// message routing live in the relay package; this package only moves
// frames between sockets and the relay.Coordinator.
package server
