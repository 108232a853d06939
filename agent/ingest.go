package agent

import "github.com/distlock/txagent/types"

// ingestLockState implements §4.C: apply a received lock snapshot,
// updating holder indices and the interesting set, then re-run readiness
// (§4.D) and, if state actually changed, the deadlock analyzer (§4.E).
func (a *Agent) ingestLockState(update types.LockStateUpdate, note types.Note) {
	id := types.LockID{Object: update.Lock.ObjectID.Object, Node: update.Where}

	switch note.Kind {
	case types.NoteSurrender:
		if note.Agent == a.cfg.ID {
			delete(a.sync, id)
		} else {
			a.deadlocks = append(a.deadlocks, DeadlockRecord{Victim: note.Agent, LockID: id})
		}
	}

	previous, hadPrevious := a.locks.Get(id)
	if hadPrevious && previous.Outdated(update.Lock.Version) {
		a.deps.Metrics.ObserveLockIngested(true)
		return
	}
	if _, waiting := a.sync[id]; waiting {
		a.deps.Metrics.ObserveLockIngested(true)
		return
	}

	before := map[types.AgentID]struct{}{}
	if hadPrevious {
		for _, ag := range previous.HeadAgents() {
			before[ag] = struct{}{}
		}
	}
	snapshot := update.Lock
	snapshot.ObjectID = id
	after := map[types.AgentID]struct{}{}
	for _, ag := range snapshot.HeadAgents() {
		after[ag] = struct{}{}
	}
	for ag := range before {
		if _, stillHolds := after[ag]; !stillHolds {
			a.holding.Remove(ag, id)
		}
	}
	for ag := range after {
		if _, alreadyHeld := before[ag]; !alreadyHeld {
			a.holding.Add(ag, id)
		}
	}
	a.locks.Put(snapshot)
	delete(a.sync, id)
	a.interesting.Update(id, len(snapshot.Queue) >= 2)
	a.deps.Metrics.ObserveLockIngested(false)

	wasHaveAll := a.haveAll
	a.evaluateReadiness()
	if a.cfg.Notify && !(a.haveAll && !wasHaveAll) {
		for _, sub := range a.notifySubs {
			sub <- EventNotification{Agent: a.cfg.ID, Update: &update}
		}
	}
	if !a.haveAll {
		a.runDeadlockAnalysis()
	}
}
