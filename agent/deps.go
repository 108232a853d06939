package agent

import (
	"context"

	"github.com/distlock/txagent/clock"
	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/types"
)

// LockServerClient is the agent's view of a single per-node lock server
// (§6.2). The transport package provides the gRPC-backed implementation;
// tests use a hand-written fake.
type LockServerClient interface {
	// Lock asks the lock server on node to grant object to agent in mode.
	// The reply is asynchronous: it arrives later as a LockStateUpdate
	// delivered to the agent's NotifyLockState, not as this call's return
	// value.
	Lock(ctx context.Context, node types.NodeID, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error

	// Surrender asks the lock server on node to release object on behalf
	// of the calling agent. Confirmation arrives as a LockStateUpdate
	// whose Note is {NoteSurrender, agentID}.
	Surrender(ctx context.Context, node types.NodeID, object types.ObjectPath) error
}

// Transport carries peer-to-peer traffic between sibling agents (§6.3).
type Transport interface {
	// NotifySurrendered tells `to` that `from` voluntarily surrendered
	// lockID.
	NotifySurrendered(ctx context.Context, to types.AgentID, from types.AgentID, lockID types.LockID) error

	// RelayLockState forwards a lock-state update to a peer as if it had
	// originated from a lock server, to propagate awareness in
	// sparse-contention cases.
	RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error
}

// NodeMonitor is the node-liveness subscription primitive assumed by §1 and
// specified in §6.4. Monitor returns a token the agent holds for the
// node's lifetime and releases via Unmonitor.
type NodeMonitor interface {
	// Monitor starts watching node's lock server for a death signal and
	// returns an opaque token identifying the subscription.
	Monitor(node types.NodeID) (token MonitorToken, err error)

	// Unmonitor releases a previously acquired token.
	Unmonitor(token MonitorToken)

	// WatchRecovery installs a one-shot watcher that reports when the lock
	// server on node comes back, used for the await_nodes=true path
	// (§4.F). The returned channel receives exactly one value.
	WatchRecovery(node types.NodeID) <-chan struct{}
}

// MonitorToken identifies an active node-liveness subscription.
type MonitorToken uint64

// Dependencies bundles every external collaborator an Agent needs. It is
// validated once at construction, filling in no-op defaults for the
// optional observability ones.
type Dependencies struct {
	LockServer LockServerClient
	Transport  Transport
	Monitor    NodeMonitor
	Logger     logger.Logger
	Metrics    Metrics
	Clock      clock.Clock
}

// Validate checks that every required dependency is present, filling in
// no-op defaults for the optional observability ones.
func (d *Dependencies) Validate() error {
	if d.LockServer == nil {
		return errMissingDependency("LockServer")
	}
	if d.Transport == nil {
		return errMissingDependency("Transport")
	}
	if d.Monitor == nil {
		return errMissingDependency("Monitor")
	}
	if d.Logger == nil {
		d.Logger = logger.NewNoOpLogger()
	}
	if d.Metrics == nil {
		d.Metrics = NoOpMetrics{}
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	return nil
}

func errMissingDependency(name string) error {
	return &missingDependencyError{name: name}
}

type missingDependencyError struct{ name string }

func (e *missingDependencyError) Error() string {
	return "agent: missing required dependency: " + e.name
}
