package agent

import "github.com/distlock/txagent/types"

// evaluateReadiness implements §4.D's quorum sweep: for each pending
// request, recompute the set of nodes on which this agent holds a
// covering-mode lock, move satisfied requests to active_requests, and
// transition to "have all" once none remain pending. An unservable
// request aborts the agent with CannotLockObjects.
func (a *Agent) evaluateReadiness() {
	if a.haveAll {
		return
	}
	var unservable []types.Request
	satisfied := 0
	for _, rec := range a.requests.AllPending() {
		a.recomputeNodesHeld(rec)
		if types.QuorumSatisfied(rec.Request.Require, rec.Request.Nodes, rec.NodesHeld, a.down) {
			a.requests.MoveToActive(rec.Request.Object)
			satisfied++
			continue
		}
		if !a.isServable(rec) {
			unservable = append(unservable, rec.Request)
		}
	}
	a.deps.Metrics.ObserveReadinessSweep(satisfied, a.requests.PendingLen())

	if len(unservable) > 0 {
		a.terminateWithAbort(&AbortError{Cause: AbortCannotLockObjects, Requests: unservable})
		return
	}
	if a.requests.PendingLen() == 0 {
		a.transitionToHaveAll()
	}
}

// recomputeNodesHeld rebuilds rec.NodesHeld from the locks table: a node
// counts as held when the agent's own ID covers the requested mode in the
// head group of the lock for (rec.Request.Object, node).
func (a *Agent) recomputeNodesHeld(rec *requestRecord) {
	for k := range rec.NodesHeld {
		delete(rec.NodesHeld, k)
	}
	for _, node := range rec.Request.Nodes {
		id := types.LockID{Object: rec.Request.Object, Node: node}
		lock, ok := a.locks.Get(id)
		if !ok {
			continue
		}
		head, ok := lock.Head()
		if !ok {
			continue
		}
		if head.Has(a.cfg.ID) && head.Mode().Covers(rec.Request.Mode) {
			rec.NodesHeld[node] = struct{}{}
		}
	}
}

// isServable implements §4.D's servability test: either await_nodes is
// set, or the request's quorum policy could still conceivably succeed
// once every currently-alive listed node is held.
func (a *Agent) isServable(rec *requestRecord) bool {
	if a.cfg.AwaitNodes {
		return true
	}
	alive := make(map[types.NodeID]struct{})
	for _, n := range rec.Request.Nodes {
		if _, down := a.down[n]; !down {
			alive[n] = struct{}{}
		}
	}
	return types.QuorumSatisfied(rec.Request.Require, rec.Request.Nodes, alive, a.down)
}

// transitionToHaveAll implements the "have all" transition of §4.D: set
// the latch, bump claim_no, and fire every parked await_all_locks
// notifier.
func (a *Agent) transitionToHaveAll() {
	a.haveAll = true
	a.claimNo++
	result := AwaitResult{Status: StatusHaveAll, Deadlocks: append([]DeadlockRecord(nil), a.deadlocks...)}
	for _, ch := range a.awaitWaiters {
		ch <- result
	}
	a.awaitWaiters = nil
	for _, rec := range a.requests.All() {
		if rec.Reply != nil {
			rec.Reply <- nil
			rec.Reply = nil
		}
	}
	if a.cfg.Notify {
		for _, sub := range a.notifySubs {
			sub <- EventNotification{Agent: a.cfg.ID, HaveAll: &result}
		}
	}
}

// computeAwaitStatus implements the status summary of §4.D, returned by
// await_all_locks.
func (a *Agent) computeAwaitStatus() AwaitResult {
	if !a.everRequested {
		return AwaitResult{Status: StatusNoLocks}
	}
	if a.haveAll {
		return AwaitResult{Status: StatusHaveAll, Deadlocks: append([]DeadlockRecord(nil), a.deadlocks...)}
	}
	var unservable []types.ObjectPath
	for _, rec := range a.requests.AllPending() {
		if !a.isServable(rec) {
			unservable = append(unservable, rec.Request.Object)
		}
	}
	if len(unservable) > 0 {
		return AwaitResult{Status: StatusCannotServe, Unservable: unservable}
	}
	return AwaitResult{Status: StatusWaiting}
}
