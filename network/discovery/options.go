package discovery

import (
	"fmt"
	"time"

	"github.com/beaconnode/beacon-node/beacon"
)

const (
	// beaconTag is the namespace where beacon nodes advertise and discover each other.
	beaconTag = "beacon"
	// subnetTagPrefix prefixes namespaces of attestation subnets.
	subnetTagPrefix = "attnet/"
)

// SubnetTag returns the rendezvous namespace of the attestation subnet.
func SubnetTag(id beacon.SubnetID) string {
	return fmt.Sprintf("%s%d", subnetTagPrefix, id)
}

// Parameters is the set of Parameters that must be configured for the Discovery module
type Parameters struct {
	// AdvertiseInterval is a interval between advertising sessions.
	AdvertiseInterval time.Duration
	// QueriesPerSecond is the sustained rate of discovery queries.
	QueriesPerSecond float64
	// QueryBurst is the number of queries that may run back to back.
	QueryBurst int
	// SubnetPeers is the amount of peers searched for on each subnet query.
	SubnetPeers int
	// MaxQueued bounds pending queries. Requests above it are dropped until the queue drains.
	MaxQueued int
	// Tag is used as rendezvous point for discovery service
	Tag string
	// AdvertisedSubnets are the long-lived subnets this node advertises itself on.
	AdvertisedSubnets []beacon.SubnetID
}

// Option is a function that configures Discovery Parameters
type Option func(*Parameters)

// DefaultParameters returns the default Parameters' configuration values
// for the Discovery module
func DefaultParameters() *Parameters {
	return &Parameters{
		// based on https://github.com/libp2p/go-libp2p-kad-dht/pull/793
		AdvertiseInterval: time.Hour * 22,
		QueriesPerSecond:  1,
		QueryBurst:        4,
		SubnetPeers:       2,
		MaxQueued:         128,
		Tag:               beaconTag,
	}
}

// Validate validates the values in Parameters
func (p *Parameters) Validate() error {
	if p.AdvertiseInterval <= 0 {
		return fmt.Errorf(
			"discovery: invalid option: value AdvertiseInterval %s, %s",
			"is 0 or negative.",
			"value must be positive",
		)
	}

	if p.QueriesPerSecond <= 0 || p.QueryBurst <= 0 {
		return fmt.Errorf(
			"discovery: invalid option: value QueriesPerSecond/QueryBurst %s, %s",
			"is 0 or negative.",
			"value must be positive",
		)
	}

	if p.SubnetPeers <= 0 || p.MaxQueued <= 0 {
		return fmt.Errorf(
			"discovery: invalid option: value SubnetPeers/MaxQueued %s, %s",
			"is 0 or negative.",
			"value must be positive",
		)
	}

	if p.Tag == "" {
		return fmt.Errorf(
			"discovery: invalid option: value Tag %s, %s",
			"is empty.",
			"value must be non-empty",
		)
	}

	for _, id := range p.AdvertisedSubnets {
		if id >= beacon.AttestationSubnetCount {
			return fmt.Errorf("discovery: invalid option: advertised subnet %d out of range", id)
		}
	}
	return nil
}

// WithAdvertiseInterval is a functional option that Discovery
// uses to set the AdvertiseInterval configuration param
func WithAdvertiseInterval(advInterval time.Duration) Option {
	return func(p *Parameters) {
		p.AdvertiseInterval = advInterval
	}
}

// WithQueryRate sets the sustained query rate and burst.
func WithQueryRate(perSecond float64, burst int) Option {
	return func(p *Parameters) {
		p.QueriesPerSecond = perSecond
		p.QueryBurst = burst
	}
}

// WithAdvertisedSubnets sets the long-lived subnets advertised by the node.
func WithAdvertisedSubnets(subnets ...beacon.SubnetID) Option {
	return func(p *Parameters) {
		p.AdvertisedSubnets = subnets
	}
}

// WithTag sets the rendezvous namespace of the network.
func WithTag(tag string) Option {
	return func(p *Parameters) {
		p.Tag = tag
	}
}
