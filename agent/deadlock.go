package agent

import (
	"context"
	"sort"

	"github.com/distlock/txagent/types"
)

// waitEdge is one edge of the wait-for graph: agent From holds Lock at its
// head, and agent To appears somewhere in Lock's tail ("To is waiting
// behind From on Lock"), per §4.E step 2.
type waitEdge struct {
	To   types.AgentID
	Lock types.LockID
}

// runDeadlockAnalysis implements §4.E: build the wait-for graph from the
// interesting locks, find strongly connected components, and either
// resolve the first nontrivial cycle found (surrender or abort) or, if
// none exists, relay informational lock snapshots to higher-ordered peers.
func (a *Agent) runDeadlockAnalysis() {
	graph := a.buildWaitForGraph()
	sccs := tarjanSCCs(graph)

	var nontrivial [][]types.AgentID
	for _, scc := range sccs {
		if len(scc) >= 2 {
			nontrivial = append(nontrivial, scc)
		}
	}
	a.deps.Metrics.ObserveDeadlockScan(len(nontrivial))

	if len(nontrivial) == 0 {
		a.relayInformational()
		return
	}

	// §13 open-question decision: act on the first component in a
	// deterministic order (by minimum agent identifier), not traversal
	// order, so "first" is reproducible across runs and across agents.
	sort.Slice(nontrivial, func(i, j int) bool {
		return minAgent(nontrivial[i]).Less(minAgent(nontrivial[j]))
	})
	cycle := nontrivial[0]
	a.resolveCycle(cycle, graph)
}

// buildWaitForGraph builds the agent-to-agent adjacency implied by §4.E
// step 2, restricted to interesting locks (queue length ≥ 2). Multiple
// edges between the same pair of agents (from different locks) are kept
// distinct so victim selection can recover which lock caused each edge.
func (a *Agent) buildWaitForGraph() map[types.AgentID][]waitEdge {
	graph := make(map[types.AgentID][]waitEdge)
	for _, id := range a.interesting.Ordered() {
		lock, ok := a.locks.Get(id)
		if !ok {
			continue
		}
		head, ok := lock.Head()
		if !ok {
			continue
		}
		headAgents := types.SortAgentIDs(head.Agents())
		var tailAgents []types.AgentID
		seen := map[types.AgentID]struct{}{}
		for _, el := range lock.Tail() {
			for _, ag := range el.Agents() {
				if _, ok := seen[ag]; !ok {
					seen[ag] = struct{}{}
					tailAgents = append(tailAgents, ag)
				}
			}
		}
		tailAgents = types.SortAgentIDs(tailAgents)
		for _, a1 := range headAgents {
			for _, a2 := range tailAgents {
				if a1 == a2 {
					continue
				}
				graph[a1] = append(graph[a1], waitEdge{To: a2, Lock: id})
				if _, ok := graph[a2]; !ok {
					graph[a2] = nil // ensure a2 is a visitable node even with no outgoing edges
				}
			}
		}
	}
	return graph
}

// resolveCycle implements §4.E steps 4-6: pick the victim (max agent
// identifier among the (agent, LockId) pairs touched by the cycle's
// internal edges) and either have self surrender or record the pending
// victim for later reporting.
func (a *Agent) resolveCycle(cycle []types.AgentID, graph map[types.AgentID][]waitEdge) {
	inCycle := make(map[types.AgentID]struct{}, len(cycle))
	for _, ag := range cycle {
		inCycle[ag] = struct{}{}
	}

	type pair struct {
		Agent  types.AgentID
		LockID types.LockID
	}
	var candidates []pair
	for _, ag := range cycle {
		for _, e := range graph[ag] {
			if _, ok := inCycle[e.To]; !ok {
				continue
			}
			candidates = append(candidates, pair{Agent: ag, LockID: e.Lock}, pair{Agent: e.To, LockID: e.Lock})
		}
	}
	if len(candidates) == 0 {
		return
	}
	victim := candidates[0]
	for _, c := range candidates[1:] {
		if victim.Agent.Less(c.Agent) || (victim.Agent == c.Agent && c.LockID.Less(victim.LockID)) {
			victim = c
		}
	}

	if victim.Agent != a.cfg.ID {
		a.deadlocks = append(a.deadlocks, DeadlockRecord{Victim: victim.Agent, LockID: victim.LockID})
		return
	}

	if a.cfg.AbortOnDeadlock && a.isAlreadyClaimed(victim.LockID.Object) {
		a.terminateWithAbort(&AbortError{Cause: AbortDeadlock, LockID: victim.LockID, Object: victim.LockID.Object})
		return
	}

	before := a.holding.AgentsHolding(victim.LockID)
	alreadyInQueue := make(map[types.AgentID]struct{}, len(before))
	for _, ag := range before {
		alreadyInQueue[ag] = struct{}{}
	}
	if lock, ok := a.locks.Get(victim.LockID); ok {
		for _, el := range lock.Queue {
			for _, ag := range el.Agents() {
				alreadyInQueue[ag] = struct{}{}
			}
		}
	}

	a.surrenderLock(victim.LockID, a.involvedAgentsExcept(alreadyInQueue))
}

// isAlreadyClaimed reports whether any active request for object carries a
// claim_no earlier than the agent's current one, i.e. was already
// "promised" before the most recent have-all transition (§4.E step 5).
func (a *Agent) isAlreadyClaimed(object types.ObjectPath) bool {
	for key, rec := range a.requests.active {
		if key == object.String() && rec.Request.ClaimNo < a.claimNo {
			return true
		}
	}
	return false
}

// involvedAgentsExcept returns every distinct agent present in
// agents_holding, excluding the given set (§4.E step 1 and step 5).
func (a *Agent) involvedAgentsExcept(exclude map[types.AgentID]struct{}) []types.AgentID {
	var out []types.AgentID
	for ag := range a.holding.byAgent {
		if _, skip := exclude[ag]; skip {
			continue
		}
		out = append(out, ag)
	}
	return types.SortAgentIDs(out)
}

// surrenderLock implements the voluntary surrender protocol shared by
// §4.E step 5 and the surrender_nowait command: drop local state for id,
// mark it pending confirmation in sync, ask the lock server to release
// it, and inform the given peers.
func (a *Agent) surrenderLock(id types.LockID, inform []types.AgentID) {
	a.holding.RemoveLock(id)
	a.locks.Delete(id)
	a.interesting.Remove(id)
	a.sync[id] = a.deps.Clock.Now()
	ctx := context.Background()
	if err := a.deps.LockServer.Surrender(ctx, id.Node, id.Object); err != nil {
		a.log.Warnw("surrender request failed", "lock", id, "err", err)
	}
	a.deps.Metrics.ObserveSurrender(true)
	for _, peer := range inform {
		if err := a.deps.Transport.NotifySurrendered(ctx, peer, a.cfg.ID, id); err != nil {
			a.log.Warnw("failed to notify peer of surrender", "peer", peer, "lock", id, "err", err)
		}
	}
}

// logStuckSurrenders warns about any LockID that has sat in sync longer
// than Config.SurrenderTimeout without a confirming LockStateUpdate
// arriving. Diagnostic only: it never forces a transition.
func (a *Agent) logStuckSurrenders() {
	now := a.deps.Clock.Now()
	for id, since := range a.sync {
		if now.Sub(since) >= a.cfg.SurrenderTimeout {
			a.log.Warnw("surrender still unconfirmed", "lock", id, "waited", now.Sub(since))
		}
	}
}

// relayInformational implements §4.E step 3: when no cycle is found,
// forward lock snapshots to every involved peer whose identifier is
// strictly greater than ours, restricted to locks that peer might care
// about.
func (a *Agent) relayInformational() {
	involved := a.involvedAgentsExcept(nil)
	ctx := context.Background()
	for _, peer := range involved {
		if !a.cfg.ID.Less(peer) {
			continue
		}
		for _, id := range a.interesting.Ordered() {
			if !a.isInterestingFor(peer, id) {
				continue
			}
			lock, ok := a.locks.Get(id)
			if !ok {
				continue
			}
			update := types.LockStateUpdate{Lock: lock, Where: id.Node}
			if err := a.deps.Transport.RelayLockState(ctx, peer, update); err != nil {
				a.log.Warnw("failed to relay lock state", "peer", peer, "lock", id, "err", err)
			}
		}
	}
}

// isInterestingFor implements §4.E's closing definition: a lock is
// interesting for agent A if A does not already appear in its queue and A
// holds some other lock.
func (a *Agent) isInterestingFor(peer types.AgentID, id types.LockID) bool {
	lock, ok := a.locks.Get(id)
	if !ok {
		return false
	}
	for _, el := range lock.Queue {
		if el.Has(peer) {
			return false
		}
	}
	return a.holding.HoldsAny(peer)
}

func minAgent(agents []types.AgentID) types.AgentID {
	min := agents[0]
	for _, ag := range agents[1:] {
		if ag.Less(min) {
			min = ag
		}
	}
	return min
}

// tarjanSCCs computes strongly connected components of graph in a
// deterministic order: nodes are visited in ascending AgentID order, and
// each node's edge targets in ascending AgentID order, so identical inputs
// always yield identical SCC output — required for the cross-agent
// determinism law of §8.
func tarjanSCCs(graph map[types.AgentID][]waitEdge) [][]types.AgentID {
	nodes := make([]types.AgentID, 0, len(graph))
	for ag := range graph {
		nodes = append(nodes, ag)
	}
	nodes = types.SortAgentIDs(nodes)

	sortedAdj := make(map[types.AgentID][]types.AgentID, len(graph))
	for ag, edges := range graph {
		tos := make([]types.AgentID, 0, len(edges))
		for _, e := range edges {
			tos = append(tos, e.To)
		}
		sortedAdj[ag] = types.SortAgentIDs(tos)
	}

	type state struct {
		index, lowlink int
		onStack        bool
	}
	states := make(map[types.AgentID]*state)
	var stack []types.AgentID
	var sccs [][]types.AgentID
	counter := 0

	var strongconnect func(v types.AgentID)
	strongconnect = func(v types.AgentID) {
		states[v] = &state{index: counter, lowlink: counter, onStack: true}
		counter++
		stack = append(stack, v)

		for _, w := range sortedAdj[v] {
			if states[w] == nil {
				strongconnect(w)
				if states[w].lowlink < states[v].lowlink {
					states[v].lowlink = states[w].lowlink
				}
			} else if states[w].onStack {
				if states[w].index < states[v].lowlink {
					states[v].lowlink = states[w].index
				}
			}
		}

		if states[v].lowlink == states[v].index {
			var component []types.AgentID
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				states[w].onStack = false
				component = append(component, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, component)
		}
	}

	for _, v := range nodes {
		if states[v] == nil {
			strongconnect(v)
		}
	}
	return sccs
}
