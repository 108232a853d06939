package agent

import (
	"reflect"
	"sort"
	"testing"

	"github.com/distlock/txagent/types"
)

// sccSet normalizes a slice of SCCs into a sorted, comparable form so test
// assertions don't depend on Tarjan's internal component-discovery order.
func sccSet(sccs [][]types.AgentID) [][]types.AgentID {
	out := make([][]types.AgentID, len(sccs))
	for i, c := range sccs {
		cp := append([]types.AgentID(nil), c...)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Less(cp[j]) })
		out[i] = cp
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) == 0 || len(out[j]) == 0 {
			return len(out[i]) < len(out[j])
		}
		return out[i][0].Less(out[j][0])
	})
	return out
}

func TestTarjanSCCsNoCycle(t *testing.T) {
	graph := map[types.AgentID][]waitEdge{
		"A1": {{To: "A2", Lock: lid("o1", "N1")}},
		"A2": {{To: "A3", Lock: lid("o2", "N1")}},
		"A3": nil,
	}
	sccs := sccSet(tarjanSCCs(graph))
	for _, c := range sccs {
		if len(c) != 1 {
			t.Fatalf("expected only trivial singleton components on a DAG, got %+v", sccs)
		}
	}
	if len(sccs) != 3 {
		t.Fatalf("expected 3 singleton components, got %d: %+v", len(sccs), sccs)
	}
}

func TestTarjanSCCsSimpleCycle(t *testing.T) {
	graph := map[types.AgentID][]waitEdge{
		"A1": {{To: "A2", Lock: lid("o1", "N1")}},
		"A2": {{To: "A3", Lock: lid("o2", "N1")}},
		"A3": {{To: "A1", Lock: lid("o3", "N1")}},
	}
	sccs := sccSet(tarjanSCCs(graph))
	var nontrivial [][]types.AgentID
	for _, c := range sccs {
		if len(c) >= 2 {
			nontrivial = append(nontrivial, c)
		}
	}
	if len(nontrivial) != 1 {
		t.Fatalf("expected exactly 1 nontrivial component, got %+v", sccs)
	}
	want := []types.AgentID{"A1", "A2", "A3"}
	if !reflect.DeepEqual(nontrivial[0], want) {
		t.Fatalf("expected cycle %v, got %v", want, nontrivial[0])
	}
}

func TestTarjanSCCsTwoIndependentCycles(t *testing.T) {
	graph := map[types.AgentID][]waitEdge{
		"A1": {{To: "A2", Lock: lid("o1", "N1")}},
		"A2": {{To: "A1", Lock: lid("o2", "N1")}},
		"B1": {{To: "B2", Lock: lid("o3", "N1")}},
		"B2": {{To: "B1", Lock: lid("o4", "N1")}},
	}
	sccs := sccSet(tarjanSCCs(graph))
	var nontrivial [][]types.AgentID
	for _, c := range sccs {
		if len(c) >= 2 {
			nontrivial = append(nontrivial, c)
		}
	}
	if len(nontrivial) != 2 {
		t.Fatalf("expected 2 nontrivial components, got %+v", sccs)
	}
	if !reflect.DeepEqual(nontrivial[0], []types.AgentID{"A1", "A2"}) {
		t.Fatalf("expected first component [A1 A2], got %v", nontrivial[0])
	}
	if !reflect.DeepEqual(nontrivial[1], []types.AgentID{"B1", "B2"}) {
		t.Fatalf("expected second component [B1 B2], got %v", nontrivial[1])
	}
}

// TestTarjanSCCsDeterministic checks that repeated runs against the same
// graph produce byte-identical output, the property runDeadlockAnalysis
// relies on to pick the same "first" cycle on every agent (§8's
// determinism law).
func TestTarjanSCCsDeterministic(t *testing.T) {
	graph := map[types.AgentID][]waitEdge{
		"A3": {{To: "A1", Lock: lid("o1", "N1")}},
		"A1": {{To: "A2", Lock: lid("o2", "N1")}},
		"A2": {{To: "A3", Lock: lid("o3", "N1")}, {To: "A4", Lock: lid("o4", "N1")}},
		"A4": nil,
	}
	first := tarjanSCCs(graph)
	for i := 0; i < 10; i++ {
		again := tarjanSCCs(graph)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("tarjanSCCs is not deterministic across repeated calls")
		}
	}
}

// TestRunDeadlockAnalysisPicksLowestMinAgentCycle exercises the
// post-Tarjan sort in runDeadlockAnalysis: among several nontrivial
// components, the one containing the globally smallest AgentID is always
// resolved first, regardless of traversal order.
func TestRunDeadlockAnalysisPicksLowestMinAgentCycle(t *testing.T) {
	a, _, _, _ := newTestAgent("Z9")

	// Two independent two-cycles sharing no agents: {B1,B2} and {A1,A2}.
	// A1 < B1, so the A-cycle must be chosen first.
	lockAB := lid("shared-a", "N1")
	lockBA := lid("shared-b", "N1")
	lockCD := lid("shared-c", "N1")
	lockDC := lid("shared-d", "N1")

	a.holding.Add("A1", lockAB)
	a.holding.Add("A2", lockBA)
	a.holding.Add("B1", lockCD)
	a.holding.Add("B2", lockDC)

	writeElem := func(agent types.AgentID) types.QueueElement {
		return types.QueueElement{IsWrite: true, Write: types.Entry{Agent: agent, Version: 1}}
	}

	a.locks.Put(types.Lock{
		ObjectID: lockAB,
		Version:  1,
		Queue:    []types.QueueElement{writeElem("A1"), writeElem("A2")},
	})
	a.locks.Put(types.Lock{
		ObjectID: lockBA,
		Version:  1,
		Queue:    []types.QueueElement{writeElem("A2"), writeElem("A1")},
	})
	a.locks.Put(types.Lock{
		ObjectID: lockCD,
		Version:  1,
		Queue:    []types.QueueElement{writeElem("B1"), writeElem("B2")},
	})
	a.locks.Put(types.Lock{
		ObjectID: lockDC,
		Version:  1,
		Queue:    []types.QueueElement{writeElem("B2"), writeElem("B1")},
	})
	a.interesting.Update(lockAB, true)
	a.interesting.Update(lockBA, true)
	a.interesting.Update(lockCD, true)
	a.interesting.Update(lockDC, true)

	a.runDeadlockAnalysis()

	if len(a.deadlocks) != 1 {
		t.Fatalf("expected exactly 1 informational deadlock record, got %+v", a.deadlocks)
	}
	if a.deadlocks[0].Victim != "A2" {
		t.Fatalf("expected victim from the A-cycle (lowest min agent), got %+v", a.deadlocks[0])
	}
}
