package beacon

import (
	"encoding/hex"
	"fmt"
	"math/bits"
)

// AttestationSubnetCount is the number of attestation subnets a peer can announce in its Attnets.
const AttestationSubnetCount = 64

type (
	Slot     uint64
	Epoch    uint64
	SubnetID uint64
)

// Root is a 32-byte block or state root.
type Root [32]byte

func (r Root) IsZero() bool {
	return r == Root{}
}

func (r Root) String() string {
	return "0x" + hex.EncodeToString(r[:])
}

// ForkDigest identifies the fork a node follows together with its genesis validators root.
type ForkDigest [4]byte

func (d ForkDigest) String() string {
	return "0x" + hex.EncodeToString(d[:])
}

// ParseForkDigest parses a hex string with or without 0x prefix.
func ParseForkDigest(s string) (ForkDigest, error) {
	var d ForkDigest
	if len(s) >= 2 && s[:2] == "0x" {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("beacon: parsing fork digest: %w", err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("beacon: fork digest must be %d bytes, got %d", len(d), len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Attnets is the bitvector of attestation subnets a peer is subscribed to.
type Attnets [AttestationSubnetCount / 8]byte

// Has reports whether the subnet bit is set. Out of range subnets are never set.
func (a Attnets) Has(id SubnetID) bool {
	if id >= AttestationSubnetCount {
		return false
	}
	return a[id/8]&(1<<(id%8)) != 0
}

// Set returns a copy of the bitvector with the subnet bit set to v.
func (a Attnets) Set(id SubnetID, v bool) Attnets {
	if id >= AttestationSubnetCount {
		return a
	}
	if v {
		a[id/8] |= 1 << (id % 8)
	} else {
		a[id/8] &^= 1 << (id % 8)
	}
	return a
}

// Subnets lists the set subnets in ascending order.
func (a Attnets) Subnets() []SubnetID {
	ids := make([]SubnetID, 0, a.Count())
	for i := SubnetID(0); i < AttestationSubnetCount; i++ {
		if a.Has(i) {
			ids = append(ids, i)
		}
	}
	return ids
}

func (a Attnets) Count() int {
	n := 0
	for _, b := range a {
		n += bits.OnesCount8(b)
	}
	return n
}

// NewAttnets builds a bitvector with the given subnets set.
func NewAttnets(ids ...SubnetID) Attnets {
	var a Attnets
	for _, id := range ids {
		a = a.Set(id, true)
	}
	return a
}
