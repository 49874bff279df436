package reqresp

import (
	"sync"

	"github.com/beaconnode/beacon-node/beacon"
)

// StatusProvider returns the local status answered to status requests.
type StatusProvider interface {
	Status() beacon.Status
}

// LocalMetadata is the node's own metadata. The sequence number grows on every attnets change.
type LocalMetadata struct {
	lk sync.RWMutex
	md beacon.Metadata
}

func NewLocalMetadata(attnets beacon.Attnets) *LocalMetadata {
	return &LocalMetadata{md: beacon.Metadata{Attnets: attnets}}
}

func (l *LocalMetadata) Metadata() beacon.Metadata {
	l.lk.RLock()
	defer l.lk.RUnlock()
	return l.md
}

func (l *LocalMetadata) SeqNumber() uint64 {
	l.lk.RLock()
	defer l.lk.RUnlock()
	return l.md.SeqNumber
}

// SetAttnets replaces the announced subnets and bumps the sequence number if they changed.
func (l *LocalMetadata) SetAttnets(attnets beacon.Attnets) {
	l.lk.Lock()
	defer l.lk.Unlock()
	if l.md.Attnets == attnets {
		return
	}
	l.md.Attnets = attnets
	l.md.SeqNumber++
}
