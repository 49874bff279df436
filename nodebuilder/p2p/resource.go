package p2p

import (
	"context"

	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/network"
	rcmgr "github.com/libp2p/go-libp2p/p2p/host/resource-manager"
	ma "github.com/multiformats/go-multiaddr"
	madns "github.com/multiformats/go-multiaddr-dns"
)

// resourceManager constructs the libp2p resource manager with autoscaled default limits.
// Bootstrappers are allowlisted, so they are reachable even when the limits are hit.
func resourceManager(
	ctx context.Context,
	cfg *Config,
	bootstrappers Bootstrappers,
) (network.ResourceManager, error) {
	limits := rcmgr.DefaultLimits
	libp2p.SetDefaultServiceLimits(&limits)

	allowlist := make([]ma.Multiaddr, 0, len(bootstrappers))
	for _, b := range bootstrappers {
		for _, baddr := range b.Addrs {
			resolved, err := madns.DefaultResolver.Resolve(ctx, baddr)
			if err != nil {
				log.Warnw("error resolving bootstrapper DNS", "addr", baddr.String(), "err", err)
				continue
			}
			allowlist = append(allowlist, resolved...)
		}
	}

	opts := []rcmgr.Option{rcmgr.WithAllowlistedMultiaddrs(allowlist)}
	if cfg.EnableDebugMetrics {
		str, err := rcmgr.NewStatsTraceReporter()
		if err != nil {
			return nil, err
		}
		opts = append(opts, rcmgr.WithTraceReporter(str))
	}
	return rcmgr.NewResourceManager(rcmgr.NewFixedLimiter(limits.AutoScale()), opts...)
}
