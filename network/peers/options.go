package peers

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

type Parameters struct {
	// TargetPeers is the amount of peers the manager tries to stay connected to.
	TargetPeers int
	// MaxPeers is the hard limit of connected peers. Peers above it are disconnected on heartbeat.
	MaxPeers int

	// HeartbeatInterval is the interval at which the connected set is pruned and topped up.
	HeartbeatInterval time.Duration
	// PingInterval is the minimum time between two pings of the same peer.
	PingInterval time.Duration
	// StatusInterval is the minimum time between two status requests to the same peer. Zero means
	// one epoch of the chain.
	StatusInterval time.Duration
	// CheckInterval is the interval at which peers are checked for due pings and status requests.
	CheckInterval time.Duration

	// RequestTimeout limits every outbound request made by the manager.
	RequestTimeout time.Duration
	// Workers is the amount of outbound requests that may run in parallel.
	Workers int

	clock clock.Clock
}

// Option is a function that configures peer manager Parameters
type Option func(*Parameters)

// DefaultParameters returns the default configuration values for the peer manager
func DefaultParameters() Parameters {
	return Parameters{
		TargetPeers:       50,
		MaxPeers:          55,
		HeartbeatInterval: 30 * time.Second,
		PingInterval:      15 * time.Second,
		CheckInterval:     2 * time.Second,
		RequestTimeout:    10 * time.Second,
		Workers:           16,
	}
}

// Validate validates the values in Parameters
func (p *Parameters) Validate() error {
	if p.TargetPeers <= 0 {
		return fmt.Errorf("peer-manager: target peers must be positive")
	}

	if p.MaxPeers < p.TargetPeers {
		return fmt.Errorf("peer-manager: max peers (%d) must not be lower than target peers (%d)",
			p.MaxPeers, p.TargetPeers)
	}

	if p.HeartbeatInterval <= 0 || p.PingInterval <= 0 || p.CheckInterval <= 0 {
		return fmt.Errorf("peer-manager: heartbeat, ping and check intervals must be positive")
	}

	if p.StatusInterval < 0 {
		return fmt.Errorf("peer-manager: status interval must not be negative")
	}

	if p.RequestTimeout <= 0 {
		return fmt.Errorf("peer-manager: request timeout must be positive")
	}

	if p.Workers <= 0 {
		return fmt.Errorf("peer-manager: workers must be positive")
	}
	return nil
}

// WithPeerLimits sets the target and maximum amount of connected peers.
func WithPeerLimits(target, maxPeers int) Option {
	return func(p *Parameters) {
		p.TargetPeers = target
		p.MaxPeers = maxPeers
	}
}

// WithIntervals overrides the heartbeat, ping and status intervals.
func WithIntervals(heartbeat, ping, status time.Duration) Option {
	return func(p *Parameters) {
		p.HeartbeatInterval = heartbeat
		p.PingInterval = ping
		p.StatusInterval = status
	}
}

// WithClock sets the clock driving the manager timers.
func WithClock(clk clock.Clock) Option {
	return func(p *Parameters) {
		p.clock = clk
	}
}

// WithMetrics turns on metric collection in peer manager.
func (m *Manager) WithMetrics() error {
	metrics, err := initMetrics(m)
	if err != nil {
		return fmt.Errorf("peer-manager: init metrics: %w", err)
	}
	m.metrics = metrics
	return nil
}
