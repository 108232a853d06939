package agent

import (
	"context"

	"github.com/distlock/txagent/types"
)

// normalizeOutcome classifies what the request normalizer (§4.B) did with
// an incoming (object, mode, nodes, require) ask.
type normalizeOutcome int

const (
	outcomeCreated normalizeOutcome = iota
	outcomeNoOp
	outcomeExtend
	outcomeUpgrade
	outcomeConflict
)

// normalize implements §4.B verbatim: it compares the incoming ask against
// any existing request for the same object (pending checked before
// active) and decides whether it duplicates, extends, upgrades, or
// conflicts with it.
func (a *Agent) normalize(object types.ObjectPath, mode types.Mode, nodes []types.NodeID, require types.Require) (*requestRecord, normalizeOutcome, error) {
	existing := a.requests.Find(object)
	if existing == nil {
		rec := newRequestRecord(types.Request{
			Object: object, Mode: mode, Nodes: append([]types.NodeID(nil), nodes...),
			Require: require, ClaimNo: a.claimNo,
		})
		a.requests.InsertPending(rec)
		a.everRequested = true
		if err := a.issueForNodes(rec, nodes, mode); err != nil {
			return rec, outcomeCreated, err
		}
		a.deps.Metrics.ObserveRequestNormalized("created")
		return rec, outcomeCreated, nil
	}

	sameModeAndRequire := existing.Request.Mode == mode && existing.Request.Require == require
	if sameModeAndRequire {
		extras := nodesNotIn(nodes, existing.Request.Nodes)
		if len(extras) == 0 {
			a.deps.Metrics.ObserveRequestNormalized("noop")
			return existing, outcomeNoOp, nil
		}
		existing.Request.Nodes = unionNodes(existing.Request.Nodes, nodes)
		if err := a.issueForNodes(existing, extras, mode); err != nil {
			return existing, outcomeExtend, err
		}
		a.deps.Metrics.ObserveRequestNormalized("extend")
		return existing, outcomeExtend, nil
	}

	sameScope := existing.Request.Require == require && sameNodeSet(existing.Request.Nodes, nodes)
	if sameScope && existing.Request.Mode == types.ModeWrite && mode == types.ModeRead {
		a.deps.Metrics.ObserveRequestNormalized("noop_write_covers_read")
		return existing, outcomeNoOp, nil
	}
	if sameScope && existing.Request.Mode == types.ModeRead && mode == types.ModeWrite {
		for _, id := range a.locks.DeleteObject(object) {
			a.holding.RemoveLock(id)
			a.interesting.Remove(id)
		}
		a.requests.Delete(object)
		rec := newRequestRecord(types.Request{
			Object: object, Mode: mode, Nodes: append([]types.NodeID(nil), nodes...),
			Require: require, ClaimNo: a.claimNo,
		})
		a.requests.InsertPending(rec)
		a.everRequested = true
		if err := a.issueForNodes(rec, nodes, mode); err != nil {
			return rec, outcomeUpgrade, err
		}
		a.deps.Metrics.ObserveRequestNormalized("upgrade")
		return rec, outcomeUpgrade, nil
	}

	a.deps.Metrics.ObserveRequestNormalized("conflict")
	return nil, outcomeConflict, &AbortError{Cause: AbortConflictingRequest, Object: object}
}

// issueForNodes ensures every node is monitored and forwards a lock
// request to each of its lock servers.
func (a *Agent) issueForNodes(rec *requestRecord, nodes []types.NodeID, mode types.Mode) error {
	for _, node := range nodes {
		a.ensureMonitored(node)
		ctx := context.Background()
		if err := a.deps.LockServer.Lock(ctx, node, rec.Request.Object, a.cfg.ID, mode); err != nil {
			a.log.Warnw("lock request failed", "node", node, "object", rec.Request.Object, "err", err)
			return &AbortError{Cause: AbortNotRunning, Object: rec.Request.Object, Node: node}
		}
	}
	return nil
}

// ensureMonitored starts watching node's lock server if it is not already
// monitored.
func (a *Agent) ensureMonitored(node types.NodeID) {
	if _, ok := a.monitored[node]; ok {
		return
	}
	token, err := a.deps.Monitor.Monitor(node)
	if err != nil {
		a.log.Warnw("failed to monitor node", "node", node, "err", err)
		return
	}
	a.monitored[node] = token
}

func nodesNotIn(candidates, existing []types.NodeID) []types.NodeID {
	have := make(map[types.NodeID]struct{}, len(existing))
	for _, n := range existing {
		have[n] = struct{}{}
	}
	var extras []types.NodeID
	for _, n := range candidates {
		if _, ok := have[n]; !ok {
			extras = append(extras, n)
		}
	}
	return extras
}

func unionNodes(a, b []types.NodeID) []types.NodeID {
	seen := make(map[types.NodeID]struct{}, len(a)+len(b))
	out := make([]types.NodeID, 0, len(a)+len(b))
	for _, list := range [][]types.NodeID{a, b} {
		for _, n := range list {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				out = append(out, n)
			}
		}
	}
	return out
}

func sameNodeSet(a, b []types.NodeID) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[types.NodeID]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
