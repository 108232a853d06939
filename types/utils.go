package types

import "sort"

// QuorumSatisfied evaluates a request's quorum policy against the set of
// nodes the agent currently holds a covering lock on (`held`) and the set
// of nodes presently considered down (`down`). It implements the four
// policies verbatim: all, any, majority, majority_alive.
func QuorumSatisfied(req Require, nodes []NodeID, held map[NodeID]struct{}, down map[NodeID]struct{}) bool {
	switch req {
	case RequireAll:
		for _, n := range nodes {
			if _, ok := held[n]; !ok {
				return false
			}
		}
		return true
	case RequireAny:
		for _, n := range nodes {
			if _, ok := held[n]; ok {
				return true
			}
		}
		return len(nodes) == 0
	case RequireMajority:
		count := 0
		for _, n := range nodes {
			if _, ok := held[n]; ok {
				count++
			}
		}
		return count > len(nodes)/2
	case RequireMajorityAlive:
		alive := 0
		count := 0
		for _, n := range nodes {
			if _, isDown := down[n]; isDown {
				continue
			}
			alive++
			if _, ok := held[n]; ok {
				count++
			}
		}
		return count > alive/2
	default:
		return false
	}
}

// SortLockIDs returns a new slice of ids in the deterministic order defined
// by LockID.Less. The agent's tables use it to iterate their entries in a
// reproducible order; they do not keep this order internally.
func SortLockIDs(ids []LockID) []LockID {
	out := make([]LockID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortAgentIDs returns a new slice of ids sorted by the global agent order.
func SortAgentIDs(ids []AgentID) []AgentID {
	out := make([]AgentID, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
