package transport

import (
	"context"
	"sync"
	"time"

	"github.com/distlock/txagent/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is the outbound side of the transport: it implements
// agent.LockServerClient, agent.Transport, and monitor.Prober (by
// structural match, not explicit import, to avoid a dependency cycle),
// dialing peers resolved by a PeerResolver and caching one connection per
// dialed address for reuse across calls.
type Client struct {
	self     types.AgentID
	resolver PeerResolver
	cfg      ClientConfig
	limiter  *limiterSet

	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewClient binds a Client to self (the agent or lock-server client issuing
// calls) and resolver (how to reach peers).
func NewClient(self types.AgentID, resolver PeerResolver, opts ...ClientOption) *Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{
		self:     self,
		resolver: resolver,
		cfg:      cfg,
		limiter:  newLimiterSet(cfg.OutboundRate, cfg.OutboundBurst),
		conns:    make(map[string]*grpc.ClientConn),
	}
}

func (c *Client) connFor(addr string) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(c.cfg.MaxRecvMsgSize),
			grpc.MaxCallSendMsgSize(c.cfg.MaxSendMsgSize),
		),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:    c.cfg.KeepaliveTime,
			Timeout: c.cfg.KeepaliveTimeout,
		}),
	)
	if err != nil {
		return nil, err
	}
	c.conns[addr] = conn
	return conn, nil
}

func (c *Client) invoke(ctx context.Context, addr, method string, req *structpb.Struct) (*structpb.Struct, error) {
	conn, err := c.connFor(addr)
	if err != nil {
		return nil, err
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()
	reply := new(structpb.Struct)
	if err := conn.Invoke(dialCtx, "/"+serviceName+"/"+method, req, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Lock implements agent.LockServerClient.Lock.
func (c *Client) Lock(ctx context.Context, node types.NodeID, object types.ObjectPath, agentID types.AgentID, mode types.Mode) error {
	addr, ok := c.resolver.NodeAddr(node)
	if !ok {
		return ErrUnknownPeer
	}
	if err := c.limiter.wait(ctx, nodeKey(node)); err != nil {
		return err
	}
	req, err := encodeLockRequest(object, agentID, mode)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, addr, "Lock", req)
	return err
}

// Surrender implements agent.LockServerClient.Surrender.
func (c *Client) Surrender(ctx context.Context, node types.NodeID, object types.ObjectPath) error {
	addr, ok := c.resolver.NodeAddr(node)
	if !ok {
		return ErrUnknownPeer
	}
	if err := c.limiter.wait(ctx, nodeKey(node)); err != nil {
		return err
	}
	req, err := encodeSurrenderRequest(object, c.self)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, addr, "Surrender", req)
	return err
}

// NotifySurrendered implements agent.Transport.NotifySurrendered.
func (c *Client) NotifySurrendered(ctx context.Context, to, from types.AgentID, lockID types.LockID) error {
	addr, ok := c.resolver.AgentAddr(to)
	if !ok {
		return ErrUnknownPeer
	}
	req, err := encodeNotifySurrendered(to, from, lockID)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, addr, "NotifySurrendered", req)
	return err
}

// RelayLockState implements agent.Transport.RelayLockState.
func (c *Client) RelayLockState(ctx context.Context, to types.AgentID, update types.LockStateUpdate) error {
	addr, ok := c.resolver.AgentAddr(to)
	if !ok {
		return ErrUnknownPeer
	}
	req, err := encodeLockStateUpdate(update)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, addr, "RelayLockState", req)
	return err
}

// Ping implements monitor.Prober.Ping: a lightweight liveness probe
// against a node's lock server.
func (c *Client) Ping(ctx context.Context, node types.NodeID) error {
	addr, ok := c.resolver.NodeAddr(node)
	if !ok {
		return ErrUnknownPeer
	}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	req, err := structpb.NewStruct(nil)
	if err != nil {
		return err
	}
	_, err = c.invoke(ctx, addr, "Ping", req)
	return err
}

// Close tears down every cached connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for addr, conn := range c.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.conns, addr)
	}
	return firstErr
}
