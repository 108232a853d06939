package transport

import "errors"

var (
	// ErrUnknownPeer indicates the resolver has no address for a requested
	// node or agent.
	ErrUnknownPeer = errors.New("transport: unknown peer")

	// ErrServerClosed indicates a call on a Server after Stop.
	ErrServerClosed = errors.New("transport: server closed")
)
