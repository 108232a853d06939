package transport

import (
	"time"

	"github.com/distlock/txagent/logger"
	"golang.org/x/time/rate"
)

// Defaults for dial timeouts, message sizes, and keepalive behavior across
// this package's client/server split.
const (
	DefaultDialTimeout      = 2 * time.Second
	DefaultMaxRecvMsgSize   = 4 << 20 // 4 MiB
	DefaultMaxSendMsgSize   = 4 << 20
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	DefaultServerMaxConnectionIdle = 5 * time.Minute

	// DefaultOutboundRate bounds how many Lock/Surrender requests this
	// package issues per second to any single node, smoothing the
	// thundering herd of reissues a locks_running(N) recovery (§4.F)
	// otherwise produces against a server that just came back.
	DefaultOutboundRate  rate.Limit = 50
	DefaultOutboundBurst int        = 20
)

// ClientOption configures a Client.
type ClientOption func(*ClientConfig)

// ClientConfig holds a Client's tunables.
type ClientConfig struct {
	DialTimeout      time.Duration
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
	MaxRecvMsgSize   int
	MaxSendMsgSize   int
	OutboundRate     rate.Limit
	OutboundBurst    int
	Logger           logger.Logger
}

// DefaultClientConfig returns the package defaults above.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		DialTimeout:      DefaultDialTimeout,
		KeepaliveTime:    DefaultKeepaliveTime,
		KeepaliveTimeout: DefaultKeepaliveTimeout,
		MaxRecvMsgSize:   DefaultMaxRecvMsgSize,
		MaxSendMsgSize:   DefaultMaxSendMsgSize,
		OutboundRate:     DefaultOutboundRate,
		OutboundBurst:    DefaultOutboundBurst,
		Logger:           logger.NewNoOpLogger(),
	}
}

// WithDialTimeout overrides the per-dial connection timeout.
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *ClientConfig) { c.DialTimeout = d }
}

// WithOutboundRate overrides the per-node outbound token-bucket rate and
// burst.
func WithOutboundRate(r rate.Limit, burst int) ClientOption {
	return func(c *ClientConfig) { c.OutboundRate = r; c.OutboundBurst = burst }
}

// WithClientLogger overrides the client's logger.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *ClientConfig) { c.Logger = l }
}

// ServerOption configures a Server.
type ServerOption func(*ServerConfig)

// ServerConfig holds a Server's tunables.
type ServerConfig struct {
	MaxRecvMsgSize       int
	MaxSendMsgSize       int
	MaxConnectionIdle    time.Duration
	KeepaliveTime        time.Duration
	KeepaliveTimeout     time.Duration
	Logger               logger.Logger
}

// DefaultServerConfig returns the package defaults above.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxRecvMsgSize:    DefaultMaxRecvMsgSize,
		MaxSendMsgSize:    DefaultMaxSendMsgSize,
		MaxConnectionIdle: DefaultServerMaxConnectionIdle,
		KeepaliveTime:     DefaultKeepaliveTime,
		KeepaliveTimeout:  DefaultKeepaliveTimeout,
		Logger:            logger.NewNoOpLogger(),
	}
}

// WithServerLogger overrides the server's logger.
func WithServerLogger(l logger.Logger) ServerOption {
	return func(c *ServerConfig) { c.Logger = l }
}
