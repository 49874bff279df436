package cmd

import (
	"context"

	"go.uber.org/fx"

	"github.com/beaconnode/beacon-node/nodebuilder"
	"github.com/beaconnode/beacon-node/params"
)

// Network reads the params.Network from the context.
func Network(ctx context.Context) params.Network {
	return ctx.Value(networkKey{}).(params.Network)
}

// StorePath reads the store path from the context.
func StorePath(ctx context.Context) string {
	return ctx.Value(storePathKey{}).(string)
}

// NodeConfig reads the node config from the context, falling back to the default one.
func NodeConfig(ctx context.Context) nodebuilder.Config {
	cfg, ok := ctx.Value(configKey{}).(*nodebuilder.Config)
	if !ok {
		return *nodebuilder.DefaultConfig()
	}
	return *cfg
}

// WithNetwork sets the network in the given context.
func WithNetwork(ctx context.Context, net params.Network) context.Context {
	return context.WithValue(ctx, networkKey{}, net)
}

// WithStorePath sets Store Path in the given context.
func WithStorePath(ctx context.Context, storePath string) context.Context {
	return context.WithValue(ctx, storePathKey{}, storePath)
}

// WithNodeConfig sets the node config in the Env.
func WithNodeConfig(ctx context.Context, config *nodebuilder.Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// NodeOptions returns node options parsed from Environment(Flags, ENV vars, etc)
func NodeOptions(ctx context.Context) []fx.Option {
	options, ok := ctx.Value(optionsKey{}).([]fx.Option)
	if !ok {
		return []fx.Option{}
	}
	return options
}

// WithNodeOptions add new options to Env.
func WithNodeOptions(ctx context.Context, opts ...fx.Option) context.Context {
	options := NodeOptions(ctx)
	return context.WithValue(ctx, optionsKey{}, append(options, opts...))
}

type (
	optionsKey   struct{}
	configKey    struct{}
	storePathKey struct{}
	networkKey   struct{}
)
