package agent

import (
	"fmt"

	"github.com/distlock/txagent/types"
)

// handleLock implements the lock(...) operation of §4.G.
func (a *Agent) handleLock(c LockCommand) bool {
	rec, outcome, err := a.normalize(c.Object, c.Mode, c.Nodes, c.Require)
	if err != nil {
		if ae, ok := err.(*AbortError); ok {
			sendErr(c.Reply, ae)
			return a.terminateWithAbort(ae)
		}
		sendErr(c.Reply, err)
		return false
	}
	if outcome == outcomeNoOp {
		sendErr(c.Reply, nil)
		return false
	}
	if c.Wait {
		rec.Wait = true
		rec.Reply = c.Reply
	} else {
		sendErr(c.Reply, nil)
	}
	a.evaluateReadiness()
	if !a.haveAll {
		a.runDeadlockAnalysis()
	}
	return a.stopped
}

// handleLockObjects implements the lock_objects([...]) batch operation.
// Per the §13 open-question decision, a spec element with an unset
// Require fails that element with ErrIllegalLockPattern instead of
// silently defaulting to "all".
func (a *Agent) handleLockObjects(c LockObjectsCommand) bool {
	errs := make([]error, len(c.Specs))
	terminated := false
	for i, spec := range c.Specs {
		if terminated {
			errs[i] = ErrAgentStopped
			continue
		}
		if spec.Require == types.RequireUnset {
			errs[i] = ErrIllegalLockPattern
			continue
		}
		_, _, err := a.normalize(spec.Object, spec.Mode, spec.Nodes, spec.Require)
		if err != nil {
			errs[i] = err
			if ae, ok := err.(*AbortError); ok {
				terminated = a.terminateWithAbort(ae)
			}
			continue
		}
	}
	if c.Reply != nil {
		c.Reply <- errs
	}
	if !terminated {
		a.evaluateReadiness()
		if !a.haveAll {
			a.runDeadlockAnalysis()
		}
	}
	return terminated || a.stopped
}

// handleSurrenderNowait implements surrender_nowait(obj, otherAgent, nodes).
func (a *Agent) handleSurrenderNowait(c SurrenderNowaitCommand) bool {
	for _, node := range c.Nodes {
		id := types.LockID{Object: c.Object, Node: node}
		lock, ok := a.locks.Get(id)
		if !ok || !lockHeadHasAgent(lock, a.cfg.ID) || !lockTailHasAgent(lock, c.OtherAgent) {
			ae := &AbortError{Cause: AbortCannotSurrender, Object: c.Object, Node: node, Agent: c.OtherAgent}
			sendErr(c.Reply, ae)
			return a.terminateWithAbort(ae)
		}
	}
	for _, node := range c.Nodes {
		id := types.LockID{Object: c.Object, Node: node}
		a.surrenderLock(id, []types.AgentID{c.OtherAgent})
	}
	sendErr(c.Reply, nil)
	return false
}

// handleAwaitAllLocks implements await_all_locks (§4.G, §4.D).
func (a *Agent) handleAwaitAllLocks(c AwaitAllLocksCommand) bool {
	result := a.computeAwaitStatus()
	if result.Status == StatusWaiting {
		a.awaitWaiters = append(a.awaitWaiters, c.Reply)
		return false
	}
	if c.Reply != nil {
		c.Reply <- result
	}
	return false
}

// handleChangeFlag implements change_flag(flag, bool).
func (a *Agent) handleChangeFlag(c ChangeFlagCommand) bool {
	switch c.Flag {
	case FlagAbortOnDeadlock:
		a.cfg.AbortOnDeadlock = c.Value
	case FlagAwaitNodes:
		a.cfg.AwaitNodes = c.Value
	case FlagNotify:
		a.cfg.Notify = c.Value
	default:
		sendErr(c.Reply, fmt.Errorf("agent: unknown flag %d", c.Flag))
		return false
	}
	sendErr(c.Reply, nil)
	return false
}

// handleLockInfo implements lock_info.
func (a *Agent) handleLockInfo(c LockInfoCommand) bool {
	if c.Reply == nil {
		return false
	}
	var pending, active []types.Request
	for _, rec := range a.requests.AllPending() {
		pending = append(pending, rec.Request)
	}
	for key := range a.requests.active {
		active = append(active, a.requests.active[key].Request)
	}
	c.Reply <- LockInfoSnapshot{
		Pending: pending,
		Active:  active,
		Locks:   a.locks.Ordered(),
		HaveAll: a.haveAll,
		ClaimNo: a.claimNo,
	}
	return false
}

// handleSubscribeNotify implements the registration half of §6.1's
// persistent notification stream.
func (a *Agent) handleSubscribeNotify(c SubscribeNotifyCommand) bool {
	if c.Ch != nil {
		a.notifySubs = append(a.notifySubs, c.Ch)
	}
	if c.Reply != nil {
		c.Reply <- struct{}{}
	}
	return false
}

// handleStop implements stop: only the owning client may end the
// transaction.
func (a *Agent) handleStop(c StopCommand) bool {
	if c.Client != a.cfg.Client {
		sendErr(c.Reply, ErrNotOwningClient)
		return false
	}
	a.stopped = true
	sendErr(c.Reply, nil)
	return true
}

// terminateWithAbort sets the agent's terminal error, fails every parked
// waiter with it, and reports that the event loop should exit.
func (a *Agent) terminateWithAbort(ae *AbortError) bool {
	a.abortErr = ae
	a.stopped = true
	a.deps.Metrics.ObserveAbort(ae.Cause)
	a.log.Warnw("agent aborting", "cause", ae.Cause.String(), "err", ae.Error())
	for _, rec := range a.requests.All() {
		if rec.Reply != nil {
			rec.Reply <- ae
			rec.Reply = nil
		}
	}
	for _, ch := range a.awaitWaiters {
		ch <- AwaitResult{Status: StatusCannotServe}
	}
	a.awaitWaiters = nil
	return true
}

func lockHeadHasAgent(l types.Lock, agent types.AgentID) bool {
	head, ok := l.Head()
	return ok && head.Has(agent)
}

func lockTailHasAgent(l types.Lock, agent types.AgentID) bool {
	for _, el := range l.Tail() {
		if el.Has(agent) {
			return true
		}
	}
	return false
}
