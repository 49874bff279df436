package nodebuilder

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"
	"github.com/libp2p/go-libp2p/p2p/net/conngater"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/beaconnode/beacon-node/chain"
	"github.com/beaconnode/beacon-node/network/discovery"
	"github.com/beaconnode/beacon-node/network/peers"
	"github.com/beaconnode/beacon-node/network/reqresp"
	"github.com/beaconnode/beacon-node/nodebuilder/node"
	"github.com/beaconnode/beacon-node/nodebuilder/p2p"
	"github.com/beaconnode/beacon-node/params"
)

var (
	log   = logging.Logger("node")
	fxLog = logging.Logger("fx")
)

// Node represents the core structure of a beacon node. It keeps references to the networking
// components in one place: the libp2p host with its routing, the local chain view, the req/resp
// protocols, discovery and the peer manager keeping the connected set healthy.
type Node struct {
	fx.In `ignore-unexported:"true"`

	Network       params.Network
	Bootstrappers p2p.Bootstrappers
	Config        *Config

	// p2p components
	Host      host.Host
	ConnGater *conngater.BasicConnectionGater
	Routing   routing.PeerRouting
	// beacon networking
	Chain     *chain.State
	ReqResp   *reqresp.ReqResp
	Discovery *discovery.Discovery
	Peers     *peers.Manager

	// start and stop control ref internal fx.App lifecycle funcs to be called from Start and Stop
	start, stop lifecycleFunc
}

// New assembles a new Node for the given network over Store 'store'.
func New(net params.Network, store Store, options ...fx.Option) (*Node, error) {
	cfg, err := store.Config()
	if err != nil {
		return nil, err
	}

	return NewWithConfig(net, store, cfg, options...)
}

// NewWithConfig assembles a new Node over Store 'store' and a custom config.
func NewWithConfig(net params.Network, store Store, cfg *Config, options ...fx.Option) (*Node, error) {
	opts := append([]fx.Option{ConstructModule(net, cfg, store)}, options...)
	return newNode(opts...)
}

// Start launches the Node and all its components and services.
func (n *Node) Start(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultLifecycleTimeout)
	defer cancel()

	err := n.start(ctx)
	if err != nil {
		log.Debugf("error starting Node: %s", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("node: failed to start within timeout(%s): %w", DefaultLifecycleTimeout, err)
		}
		return fmt.Errorf("node: failed to start: %w", err)
	}

	log.Infof("\n\n/_____/  /_____/  /_____/  /_____/  /_____/ \n\nStarted beacon node %s\nnetwork: 	%s\n\n"+
		"/_____/  /_____/  /_____/  /_____/  /_____/ \n", node.GetBuildInfo().GetSemanticVersion(), n.Network)

	addrs, err := peer.AddrInfoToP2pAddrs(host.InfoFromHost(n.Host))
	if err != nil {
		log.Errorw("Retrieving multiaddress information", "err", err)
		return err
	}
	fmt.Println("The p2p host is listening on:")
	for _, addr := range addrs {
		fmt.Println("* ", addr.String())
	}
	fmt.Println()
	return nil
}

// Run is a Start which blocks on the given context 'ctx' until it is canceled.
// If canceled, the Node is still in the running state and should be gracefully stopped via Stop.
func (n *Node) Run(ctx context.Context) error {
	err := n.Start(ctx)
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// Stop shuts down the Node, all its running Modules/Services and returns.
// Canceling the given context earlier 'ctx' unblocks the Stop and aborts graceful shutdown forcing
// remaining Modules/Services to close immediately.
func (n *Node) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultLifecycleTimeout)
	defer cancel()

	err := n.stop(ctx)
	if err != nil {
		log.Debugf("error stopping Node: %s", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("node: failed to stop within timeout(%s): %w", DefaultLifecycleTimeout, err)
		}
		return fmt.Errorf("node: failed to stop: %w", err)
	}

	log.Debug("stopped Node")
	return nil
}

// newNode creates a new Node from given DI options.
// DI options allow initializing the Node with a customized set of components and services.
func newNode(opts ...fx.Option) (*Node, error) {
	node := new(Node)
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			zl := &fxevent.ZapLogger{Logger: fxLog.Desugar()}
			zl.UseLogLevel(zapcore.DebugLevel)
			return zl
		}),
		fx.Populate(node),
		fx.Options(opts...),
	)
	if err := app.Err(); err != nil {
		return nil, err
	}

	node.start, node.stop = app.Start, app.Stop
	return node, nil
}

// lifecycleFunc defines a type for common lifecycle funcs.
type lifecycleFunc func(context.Context) error

var DefaultLifecycleTimeout = time.Minute * 2
