package lockserver

import (
	"context"

	"github.com/distlock/txagent/types"
)

// Handler adapts a Server to the transport package's Handler interface by
// structural match (this package does not import transport, keeping the
// dependency one-directional): Lock and Surrender delegate to the Server,
// and the peer-only RPCs are no-ops since a lock server never originates
// or forwards agent-to-agent traffic.
type Handler struct {
	Server *Server
}

// NewHandler wraps srv for use as a transport.Handler.
func NewHandler(srv *Server) *Handler { return &Handler{Server: srv} }

// Lock delegates to the Server.
func (h *Handler) Lock(ctx context.Context, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	return h.Server.Lock(ctx, object, agentID, mode)
}

// Surrender delegates to the Server.
func (h *Handler) Surrender(ctx context.Context, object types.ObjectPath, agentID types.AgentID) error {
	return h.Server.Surrender(ctx, object, agentID)
}

// NotifySurrendered is a no-op: a lock server never relays peer traffic.
func (h *Handler) NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error {
	return nil
}

// RelayLockState is a no-op: a lock server never relays peer traffic.
func (h *Handler) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	return nil
}

// Ping always succeeds once the Server is reachable at all.
func (h *Handler) Ping(ctx context.Context) error { return nil }
