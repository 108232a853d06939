package testutil

import (
	"github.com/distlock/txagent/lockserver"
	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/types"
)

// Object builds an ObjectPath from plain strings, sparing callers the
// []types.ObjectName conversion boilerplate.
func Object(names ...string) types.ObjectPath {
	p := make(types.ObjectPath, len(names))
	for i, n := range names {
		p[i] = types.ObjectName(n)
	}
	return p
}

// WriteElement builds a single-writer queue position held by agent at
// version.
func WriteElement(agentID types.AgentID, version types.Index) types.QueueElement {
	return types.QueueElement{IsWrite: true, Write: types.Entry{Agent: agentID, Version: version}}
}

// ReadElement builds a shared-readers queue position held by the given
// agents, all at version.
func ReadElement(version types.Index, agents ...types.AgentID) types.QueueElement {
	readers := make([]types.Entry, len(agents))
	for i, a := range agents {
		readers[i] = types.Entry{Agent: a, Version: version}
	}
	return types.QueueElement{IsWrite: false, Readers: readers}
}

// LockSnapshot builds a types.Lock for node/object with the given queue,
// the way a test wants to assert against what the agent ingested, without
// hand-assembling the nested QueueElement/Entry literals every time.
func LockSnapshot(object types.ObjectPath, node types.NodeID, version types.Index, queue ...types.QueueElement) types.Lock {
	return types.Lock{
		ObjectID: types.LockID{Object: object, Node: node},
		Version:  version,
		Queue:    queue,
	}
}

// StateUpdate wraps a Lock into the LockStateUpdate an agent ingests,
// optionally annotated with a surrender Note.
func StateUpdate(lock types.Lock, where types.NodeID, note types.Note) types.LockStateUpdate {
	return types.LockStateUpdate{Lock: lock, Where: where, Note: note}
}

// TwoAgentCycle describes the smallest possible wait-for deadlock: A holds
// objA's write lock and waits behind B on objB; B holds objB's write lock
// and waits behind A on objA. No test or command in this repository uses
// it.
type TwoAgentCycle struct {
	Node       types.NodeID
	ObjA, ObjB types.ObjectPath
	AgentA, AgentB types.AgentID
	LockA, LockB   types.Lock
}

// NewTwoAgentCycle builds a TwoAgentCycle on node for the given pair of
// agents, with both locks at version 1 and both queues holding the owner
// at the head and the other agent waiting behind it.
func NewTwoAgentCycle(node types.NodeID, agentA, agentB types.AgentID, objA, objB types.ObjectPath) TwoAgentCycle {
	return TwoAgentCycle{
		Node:   node,
		ObjA:   objA,
		ObjB:   objB,
		AgentA: agentA,
		AgentB: agentB,
		LockA:  LockSnapshot(objA, node, 1, WriteElement(agentA, 1), WriteElement(agentB, 1)),
		LockB:  LockSnapshot(objB, node, 1, WriteElement(agentB, 1), WriteElement(agentA, 1)),
	}
}

// Updates returns the pair of LockStateUpdate values an agent would
// ingest to learn about this cycle.
func (c TwoAgentCycle) Updates() [2]types.LockStateUpdate {
	return [2]types.LockStateUpdate{
		StateUpdate(c.LockA, c.Node, types.Note{}),
		StateUpdate(c.LockB, c.Node, types.Note{}),
	}
}

// QuorumSetup wires a lockserver.Registry with one in-memory Server per
// node, the fixture a Require-policy test needs to exercise a request
// that spans several nodes (§4.B's RequireAll/RequireAny/RequireMajority
// distinctions).
type QuorumSetup struct {
	Nodes    []types.NodeID
	Registry *lockserver.Registry
	Servers  map[types.NodeID]*lockserver.Server
}

// NewQuorumSetup builds a Registry with one Server per listed node.
func NewQuorumSetup(nodes ...types.NodeID) QuorumSetup {
	registry := lockserver.NewRegistry(logger.NewNoOpLogger())
	servers := make(map[types.NodeID]*lockserver.Server, len(nodes))
	for _, n := range nodes {
		srv := lockserver.NewServer(string(n))
		servers[n] = srv
		registry.Put(n, srv)
	}
	return QuorumSetup{Nodes: nodes, Registry: registry, Servers: servers}
}

// ClientFor returns a lockserver.Client bound to self against this
// QuorumSetup's Registry.
func (q QuorumSetup) ClientFor(self types.AgentID) *lockserver.Client {
	return lockserver.NewClient(self, q.Registry)
}
