package transport

import (
	"net"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Server hosts one Handler's RPCs on a listening address, the inbound
// counterpart to Client. A deployment runs one Server per lock-server node
// and, when an agent accepts direct peer traffic rather than relaying
// through its own lock-server node, one per agent.
type Server struct {
	cfg      ServerConfig
	handler  Handler
	listener net.Listener
	grpcSrv  *grpc.Server

	stopOnce sync.Once
}

// NewServer constructs a Server bound to addr, answering with h.
func NewServer(addr string, h Handler, opts ...ServerOption) (*Server, error) {
	cfg := DefaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	grpcSrv := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle: cfg.MaxConnectionIdle,
			Time:              cfg.KeepaliveTime,
			Timeout:           cfg.KeepaliveTimeout,
		}),
	)
	RegisterHandler(grpcSrv, h)

	return &Server{cfg: cfg, handler: h, listener: lis, grpcSrv: grpcSrv}, nil
}

// Addr returns the address the server is actually listening on, useful
// when constructed with a ":0" ephemeral port.
func (s *Server) Addr() string { return s.listener.Addr().String() }

// Serve blocks, answering RPCs until Stop is called.
func (s *Server) Serve() error {
	return s.grpcSrv.Serve(s.listener)
}

// Stop gracefully shuts the server down; idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.grpcSrv.GracefulStop()
	})
}
