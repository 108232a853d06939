package agent

import "github.com/distlock/txagent/types"

// event is the sum type of everything that can arrive on the agent's
// single inbound queue besides a Command (§4.H, §5: "Messages ... are
// delivered sequentially from one incoming queue"). Producers (the
// transport's lock-server listener, the node monitor, the peer listener)
// each push concrete event values onto the same channel through the
// Agent's Notify* methods, which call Agent.post.
type event interface{ isEvent() }

// lockStateEvent carries a lock-server-originated snapshot into §4.C.
type lockStateEvent struct {
	Update types.LockStateUpdate
}

func (lockStateEvent) isEvent() {}

// peerSurrenderEvent carries an informational {surrendered, sender, LockId}
// peer message (§6.3).
type peerSurrenderEvent struct {
	Sender types.AgentID
	LockID types.LockID
}

func (peerSurrenderEvent) isEvent() {}

// peerLockStateEvent carries a lock-state update relayed by a peer as if
// it came from a lock server (§6.3).
type peerLockStateEvent struct {
	Update types.LockStateUpdate
}

func (peerLockStateEvent) isEvent() {}

// nodeUpEvent is {nodeup, N} from monitor_nodes(true) (§6.4).
type nodeUpEvent struct{ Node types.NodeID }

func (nodeUpEvent) isEvent() {}

// nodeDownEvent is the per-(LockServer,N) death signal (§6.4, §4.F).
type nodeDownEvent struct{ Node types.NodeID }

func (nodeDownEvent) isEvent() {}

// locksRunningEvent is produced by a recovery watcher when the lock server
// on Node restarts (§4.F, §6.4).
type locksRunningEvent struct{ Node types.NodeID }

func (locksRunningEvent) isEvent() {}

// clientDeadEvent fires when the linked client terminates (§4.F).
type clientDeadEvent struct{}

func (clientDeadEvent) isEvent() {}

// commandEvent wraps a Command so it can travel on the same channel as
// the event types above.
type commandEvent struct{ Cmd Command }

func (commandEvent) isEvent() {}

// deadlockScanEvent fires on Config.DeadlockScanInterval and triggers the
// periodic safety-net re-run of §4.E alongside its event-triggered runs.
type deadlockScanEvent struct{}

func (deadlockScanEvent) isEvent() {}
