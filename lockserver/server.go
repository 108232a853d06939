package lockserver

import (
	"context"
	"sync"

	"github.com/distlock/txagent/logger"
	"github.com/distlock/txagent/types"
)

// Server is an in-memory reference implementation of one node's lock
// server, speaking exactly the §6.2 wire contract. It exists so the agent
// package can be exercised end-to-end without a real external cluster,
// implementing the Read(set)|Write(entry) queue model directly over an
// in-memory map instead of a replicated log.
//
// Server is safe for concurrent use; every exported method guards its
// state with the single internal mutex. Lock and Surrender release it
// before recording metrics and broadcasting, so subscriber sinks run
// without the mutex held.
type Server struct {
	mu   sync.Mutex
	cfg  Config
	objs map[string]*lockState

	subs map[string]map[int]UpdateSink
	next int

	stopped bool
}

// NewServer constructs a Server for the given node, applying options over
// DefaultConfig.
func NewServer(node string, opts ...Option) *Server {
	cfg := DefaultConfig()
	cfg.Node = node
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		cfg:  cfg,
		objs: make(map[string]*lockState),
		subs: make(map[string]map[int]UpdateSink),
	}
}

// Close stops the server. Every Lock or Surrender call made afterward
// returns ErrServerStopped.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

// Subscribe registers sink to receive every LockStateUpdate for object.
// Returns a function that cancels the subscription.
func (s *Server) Subscribe(object types.ObjectPath, sink UpdateSink) unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := object.String()
	if s.subs[key] == nil {
		s.subs[key] = make(map[int]UpdateSink)
	}
	id := s.next
	s.next++
	s.subs[key][id] = sink
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[key], id)
	}
}

// Lock implements the §6.2 lock(object, agentID, mode) operation: enqueue
// the agent (merging into the head read group when possible, granting
// immediately when the queue was empty) and broadcast the resulting
// snapshot to every subscriber of object.
func (s *Server) Lock(ctx context.Context, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrServerStopped
	}
	key := object.String()
	st, ok := s.objs[key]
	if !ok {
		st = &lockState{}
		s.objs[key] = st
	}
	if st.wouldAppend(agentID, mode) && len(st.queue) >= s.cfg.MaxQueueDepth {
		s.mu.Unlock()
		return ErrQueueFull
	}
	granted := len(st.queue) == 0
	changed := st.enqueue(agentID, mode)
	if changed {
		st.version++
	}
	snapshot := st.snapshot(object, s.cfg.Node)
	depth := len(st.queue)
	s.mu.Unlock()

	s.cfg.Metrics.IncrLockRequest(snapshot.ObjectID, granted)
	s.cfg.Metrics.SetQueueDepth(snapshot.ObjectID, depth)
	if changed {
		s.broadcast(object, types.LockStateUpdate{Lock: snapshot, Where: types.NodeID(s.cfg.Node)})
	}
	return nil
}

// Surrender implements §6.2 surrender(object): release agentID's head-group
// position, promote the next queue element if any, and broadcast the
// result annotated with a NoteSurrender so ingesting agents can clear
// their own sync bookkeeping (§4.C).
func (s *Server) Surrender(ctx context.Context, object types.ObjectPath, agentID types.AgentID) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return ErrServerStopped
	}
	key := object.String()
	st, ok := s.objs[key]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownLock
	}
	if len(st.queue) == 0 || !st.queue[0].Has(agentID) {
		// agentID is not in the head group: absent, or queued behind it.
		s.mu.Unlock()
		return ErrAgentNotInQueue
	}
	promoted := st.release(agentID)
	st.version++
	snapshot := st.snapshot(object, s.cfg.Node)
	s.mu.Unlock()

	s.cfg.Metrics.IncrSurrender(snapshot.ObjectID, true)
	if promoted {
		s.cfg.Metrics.IncrPromotion(snapshot.ObjectID)
	}
	s.broadcast(object, types.LockStateUpdate{
		Lock:  snapshot,
		Where: types.NodeID(s.cfg.Node),
		Note:  types.Note{Kind: types.NoteSurrender, Agent: agentID},
	})
	return nil
}

// Snapshot returns the current queue for object, for introspection and
// tests.
func (s *Server) Snapshot(object types.ObjectPath) (types.Lock, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.objs[object.String()]
	if !ok {
		return types.Lock{}, false
	}
	return st.snapshot(object, s.cfg.Node), true
}

func (s *Server) broadcast(object types.ObjectPath, update types.LockStateUpdate) {
	s.mu.Lock()
	sinks := make([]UpdateSink, 0, len(s.subs[object.String()]))
	for _, sink := range s.subs[object.String()] {
		sinks = append(sinks, sink)
	}
	s.mu.Unlock()
	for _, sink := range sinks {
		sink(update)
	}
}

// Registry maps NodeID to the Server representing it, giving a single
// agent.LockServerClient implementation (Client, below) a way to reach
// every node a multi-node request spans.
type Registry struct {
	mu      sync.RWMutex
	servers map[types.NodeID]*Server
	log     logger.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Registry{servers: make(map[types.NodeID]*Server), log: log}
}

// Put registers srv as the Server for node.
func (r *Registry) Put(node types.NodeID, srv *Server) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.servers[node] = srv
}

// Get returns the Server for node, if any.
func (r *Registry) Get(node types.NodeID) (*Server, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	srv, ok := r.servers[node]
	return srv, ok
}

// Client adapts a Registry into the agent package's LockServerClient
// interface on behalf of one agent. Surrender's wire contract (§6.2)
// carries no agent identifier, so the client must be bound to the agent
// it serves at construction.
type Client struct {
	self     types.AgentID
	registry *Registry
}

// NewClient binds a Registry to self, the agent it will serve.
func NewClient(self types.AgentID, registry *Registry) *Client {
	return &Client{self: self, registry: registry}
}

// Lock implements agent.LockServerClient.
func (c *Client) Lock(ctx context.Context, node types.NodeID, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	srv, ok := c.registry.Get(node)
	if !ok {
		return ErrUnknownLock
	}
	return srv.Lock(ctx, object, agentID, mode)
}

// Surrender implements agent.LockServerClient.
func (c *Client) Surrender(ctx context.Context, node types.NodeID, object types.ObjectPath) error {
	srv, ok := c.registry.Get(node)
	if !ok {
		return ErrUnknownLock
	}
	return srv.Surrender(ctx, object, c.self)
}
