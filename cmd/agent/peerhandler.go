package main

import (
	"context"
	"fmt"

	"github.com/distlock/txagent/agent"
	"github.com/distlock/txagent/types"
)

// peerHandler adapts an agent.Agent to transport.Handler for the RPCs a
// sibling agent actually sends: NotifySurrendered, RelayLockState, and
// Ping. Lock and Surrender are lock-server RPCs (§6.2) and never land on
// an agent's own peer-facing server, so they're rejected rather than
// silently accepted.
type peerHandler struct {
	a *agent.Agent
}

func newPeerHandler(a *agent.Agent) *peerHandler { return &peerHandler{a: a} }

var errNotALockServer = fmt.Errorf("agent: this endpoint is not a lock server")

func (h *peerHandler) Lock(ctx context.Context, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	return errNotALockServer
}

func (h *peerHandler) Surrender(ctx context.Context, object types.ObjectPath, agentID types.AgentID) error {
	return errNotALockServer
}

// NotifySurrendered implements transport.Handler by forwarding to the
// local agent's peer-surrender intake (§6.3).
func (h *peerHandler) NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error {
	h.a.NotifyPeerSurrender(from, lockID)
	return nil
}

// RelayLockState implements transport.Handler by forwarding to the local
// agent's relayed lock-state intake (§6.3).
func (h *peerHandler) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	h.a.NotifyPeerLockState(update)
	return nil
}

// Ping reports this agent's peer server as reachable; the agent's event
// loop itself is probed indirectly by NotifySurrendered/RelayLockState
// succeeding.
func (h *peerHandler) Ping(ctx context.Context) error { return nil }
