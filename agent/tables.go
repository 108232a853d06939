package agent

import "github.com/distlock/txagent/types"

// lockTable is the `locks` table of §3/§4.A: every lock snapshot the agent
// currently believes is accurate, keyed by LockID, with ordered iteration
// for deterministic diagnostics and tests.
type lockTable struct {
	byID map[types.LockID]types.Lock
}

func newLockTable() *lockTable {
	return &lockTable{byID: make(map[types.LockID]types.Lock)}
}

func (t *lockTable) Get(id types.LockID) (types.Lock, bool) {
	l, ok := t.byID[id]
	return l, ok
}

func (t *lockTable) Put(l types.Lock) { t.byID[l.ObjectID] = l }

func (t *lockTable) Delete(id types.LockID) { delete(t.byID, id) }

// DeleteObject removes every LockID for the given object, across all
// nodes, and returns the removed IDs. Used by the read→write upgrade path
// (§4.B) which purges snapshots on all nodes, not just the requested ones.
func (t *lockTable) DeleteObject(object types.ObjectPath) []types.LockID {
	var removed []types.LockID
	for id := range t.byID {
		if id.Object.Equal(object) {
			removed = append(removed, id)
			delete(t.byID, id)
		}
	}
	return removed
}

// Ordered returns every stored lock, sorted by LockID, for deterministic
// iteration (§4.A).
func (t *lockTable) Ordered() []types.Lock {
	ids := make([]types.LockID, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	ids = types.SortLockIDs(ids)
	out := make([]types.Lock, len(ids))
	for i, id := range ids {
		out[i] = t.byID[id]
	}
	return out
}

func (t *lockTable) Len() int { return len(t.byID) }

// holdingIndex is the `agents_holding` table: the set of (agent, LockID)
// pairs currently in some lock's head group, indexed both ways so that
// "which locks does A hold" and "who holds LockID" are both sublinear
// (§4.A: "is there any LockId such that (A, _) is present" must be
// sublinear; a per-agent map answers that in O(1) rather than needing the
// successor-lookup trick an ordered-container implementation would need).
type holdingIndex struct {
	byAgent map[types.AgentID]map[types.LockID]struct{}
	byLock  map[types.LockID]map[types.AgentID]struct{}
}

func newHoldingIndex() *holdingIndex {
	return &holdingIndex{
		byAgent: make(map[types.AgentID]map[types.LockID]struct{}),
		byLock:  make(map[types.LockID]map[types.AgentID]struct{}),
	}
}

func (h *holdingIndex) Add(agent types.AgentID, id types.LockID) {
	if h.byAgent[agent] == nil {
		h.byAgent[agent] = make(map[types.LockID]struct{})
	}
	h.byAgent[agent][id] = struct{}{}
	if h.byLock[id] == nil {
		h.byLock[id] = make(map[types.AgentID]struct{})
	}
	h.byLock[id][agent] = struct{}{}
}

func (h *holdingIndex) Remove(agent types.AgentID, id types.LockID) {
	if locks, ok := h.byAgent[agent]; ok {
		delete(locks, id)
		if len(locks) == 0 {
			delete(h.byAgent, agent)
		}
	}
	if agents, ok := h.byLock[id]; ok {
		delete(agents, agent)
		if len(agents) == 0 {
			delete(h.byLock, id)
		}
	}
}

// RemoveLock drops every holder of id and returns the agents that held it.
func (h *holdingIndex) RemoveLock(id types.LockID) []types.AgentID {
	agents, ok := h.byLock[id]
	if !ok {
		return nil
	}
	out := make([]types.AgentID, 0, len(agents))
	for a := range agents {
		out = append(out, a)
		if locks := h.byAgent[a]; locks != nil {
			delete(locks, id)
			if len(locks) == 0 {
				delete(h.byAgent, a)
			}
		}
	}
	delete(h.byLock, id)
	return out
}

// HoldsAny reports whether agent holds any lock at all.
func (h *holdingIndex) HoldsAny(agent types.AgentID) bool {
	locks, ok := h.byAgent[agent]
	return ok && len(locks) > 0
}

// LocksHeldBy returns every LockID agent currently holds.
func (h *holdingIndex) LocksHeldBy(agent types.AgentID) []types.LockID {
	locks := h.byAgent[agent]
	out := make([]types.LockID, 0, len(locks))
	for id := range locks {
		out = append(out, id)
	}
	return out
}

// AgentsHolding returns every agent currently holding id.
func (h *holdingIndex) AgentsHolding(id types.LockID) []types.AgentID {
	agents := h.byLock[id]
	out := make([]types.AgentID, 0, len(agents))
	for a := range agents {
		out = append(out, a)
	}
	return out
}

// requestRecord is one entry of `active_requests` or `pending_requests`:
// the client's Request plus the runtime bookkeeping the readiness
// evaluator and normalizer need.
type requestRecord struct {
	Request types.Request

	// NodesHeld is the set of nodes in Request.Nodes on which this agent
	// currently holds a covering-mode lock for Request.Object.
	NodesHeld map[types.NodeID]struct{}

	// Wait is true if the client issued this via the blocking lock(...)
	// form and is parked awaiting have_all or a fatal abort.
	Wait bool

	// Reply carries the one-shot reply channel for a waiting caller, or
	// nil for a nowait request.
	Reply chan error
}

func newRequestRecord(req types.Request) *requestRecord {
	return &requestRecord{Request: req, NodesHeld: make(map[types.NodeID]struct{})}
}

// requestTables holds `active_requests` and `pending_requests`, keyed by
// object path. Invariant 3 (§3): a request lives in exactly one of the two
// bags at any time.
type requestTables struct {
	active  map[string]*requestRecord
	pending map[string]*requestRecord
}

func newRequestTables() *requestTables {
	return &requestTables{
		active:  make(map[string]*requestRecord),
		pending: make(map[string]*requestRecord),
	}
}

// Find looks up the request for object, checking pending first then
// active per §4.B's matching order. Returns nil if there is none.
func (r *requestTables) Find(object types.ObjectPath) *requestRecord {
	key := object.String()
	if rec, ok := r.pending[key]; ok {
		return rec
	}
	if rec, ok := r.active[key]; ok {
		return rec
	}
	return nil
}

func (r *requestTables) InsertPending(rec *requestRecord) {
	r.pending[rec.Request.Object.String()] = rec
}

// MoveToActive transfers the record for object from pending to active, a
// no-op if it is not currently pending.
func (r *requestTables) MoveToActive(object types.ObjectPath) {
	key := object.String()
	rec, ok := r.pending[key]
	if !ok {
		return
	}
	delete(r.pending, key)
	r.active[key] = rec
}

// MoveToPending transfers the record for object from active to pending.
func (r *requestTables) MoveToPending(object types.ObjectPath) {
	key := object.String()
	rec, ok := r.active[key]
	if !ok {
		return
	}
	delete(r.active, key)
	r.pending[key] = rec
}

func (r *requestTables) Delete(object types.ObjectPath) {
	key := object.String()
	delete(r.active, key)
	delete(r.pending, key)
}

func (r *requestTables) PendingLen() int { return len(r.pending) }

// AllPending returns every pending record, for the readiness sweep.
func (r *requestTables) AllPending() []*requestRecord {
	out := make([]*requestRecord, 0, len(r.pending))
	for _, rec := range r.pending {
		out = append(out, rec)
	}
	return out
}

// All returns every record across both bags, used to answer every parked
// waiting Lock reply at have_all or abort.
func (r *requestTables) All() []*requestRecord {
	out := make([]*requestRecord, 0, len(r.active)+len(r.pending))
	for _, rec := range r.active {
		out = append(out, rec)
	}
	for _, rec := range r.pending {
		out = append(out, rec)
	}
	return out
}

// interestingSet is the `interesting` ordered set of §3/§4.C: LockIDs whose
// queue length is at least 2.
type interestingSet struct {
	ids map[types.LockID]struct{}
}

func newInterestingSet() *interestingSet {
	return &interestingSet{ids: make(map[types.LockID]struct{})}
}

func (s *interestingSet) Update(id types.LockID, interesting bool) {
	if interesting {
		s.ids[id] = struct{}{}
	} else {
		delete(s.ids, id)
	}
}

func (s *interestingSet) Remove(id types.LockID) { delete(s.ids, id) }

func (s *interestingSet) Has(id types.LockID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *interestingSet) Ordered() []types.LockID {
	ids := make([]types.LockID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	return types.SortLockIDs(ids)
}
