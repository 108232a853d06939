package transport

import (
	"sync"

	"github.com/distlock/txagent/types"
)

// PeerResolver maps the logical identifiers the agent package deals in
// (NodeID for lock servers, AgentID for sibling agents) to dialable
// addresses. A StaticResolver covers the common case of a fixed
// deployment; a dynamic membership source can implement the same
// interface.
type PeerResolver interface {
	NodeAddr(node types.NodeID) (string, bool)
	AgentAddr(agent types.AgentID) (string, bool)
}

// StaticResolver is a fixed address book for a deployment whose node and
// agent addresses are known up front.
type StaticResolver struct {
	mu     sync.RWMutex
	nodes  map[types.NodeID]string
	agents map[types.AgentID]string
}

// NewStaticResolver returns an empty StaticResolver.
func NewStaticResolver() *StaticResolver {
	return &StaticResolver{nodes: make(map[types.NodeID]string), agents: make(map[types.AgentID]string)}
}

// AddNode registers addr as where node's lock server listens.
func (r *StaticResolver) AddNode(node types.NodeID, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node] = addr
}

// AddAgent registers addr as where agent's peer-facing endpoint listens.
func (r *StaticResolver) AddAgent(agent types.AgentID, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[agent] = addr
}

// NodeAddr implements PeerResolver.
func (r *StaticResolver) NodeAddr(node types.NodeID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.nodes[node]
	return addr, ok
}

// AgentAddr implements PeerResolver.
func (r *StaticResolver) AgentAddr(agent types.AgentID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addr, ok := r.agents[agent]
	return addr, ok
}
