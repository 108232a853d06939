package agent

import "github.com/distlock/txagent/types"

// handleNodeDown implements the lock-server-death branch of §4.F. It
// returns true if the agent should terminate (an unservable request was
// uncovered and await_nodes is false).
func (a *Agent) handleNodeDown(node types.NodeID) bool {
	if _, already := a.down[node]; already {
		return false
	}
	a.down[node] = struct{}{}

	for _, lock := range a.locks.Ordered() {
		if lock.ObjectID.Node != node {
			continue
		}
		a.holding.RemoveLock(lock.ObjectID)
		a.locks.Delete(lock.ObjectID)
		a.interesting.Remove(lock.ObjectID)
	}

	var toMove []types.ObjectPath
	for _, rec := range a.requests.active {
		if rec.Request.HasNode(node) {
			toMove = append(toMove, rec.Request.Object)
		}
	}
	for _, obj := range toMove {
		a.requests.MoveToPending(obj)
	}

	if !a.cfg.AwaitNodes {
		a.evaluateReadiness()
		return a.stopped
	}

	a.installRecoveryWatcher(node)
	return false
}

// handleNodeUp implements the node-up branch of §4.F: mere node presence
// does not imply a functioning lock server, so this only installs a
// watcher if the node was already considered down.
func (a *Agent) handleNodeUp(node types.NodeID) {
	if _, down := a.down[node]; down {
		a.installRecoveryWatcher(node)
	}
}

// installRecoveryWatcher starts a one-shot watcher that turns the
// monitor's recovery channel into a locksRunningEvent on this agent's
// inbox, bridging the blocking channel wait outside the single-threaded
// loop per §5 ("a message handler never blocks on I/O").
func (a *Agent) installRecoveryWatcher(node types.NodeID) {
	ch := a.deps.Monitor.WatchRecovery(node)
	go func() {
		select {
		case <-ch:
			a.NotifyLocksRunning(node)
		case <-a.done:
		}
	}()
}

// handleLocksRunning implements the locks_running(N) branch of §4.F:
// clear the node from `down` and reissue every pending request that lists
// it. Returns true if reissuing uncovers a fatal NotRunning abort.
func (a *Agent) handleLocksRunning(node types.NodeID) bool {
	delete(a.down, node)
	for _, rec := range a.requests.AllPending() {
		if !rec.Request.HasNode(node) {
			continue
		}
		a.ensureMonitored(node)
		if err := a.issueForNodes(rec, []types.NodeID{node}, rec.Request.Mode); err != nil {
			if ae, ok := err.(*AbortError); ok {
				return a.terminateWithAbort(ae)
			}
		}
	}
	a.evaluateReadiness()
	return a.stopped
}
