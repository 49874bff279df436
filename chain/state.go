// Package chain keeps the node's local view of the beacon chain: the head and finalized checkpoints
// announced to peers in status messages.
package chain

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/beaconnode/beacon-node/beacon"
)

var log = logging.Logger("chain")

// maxFinalizedHistory bounds how many finalized checkpoints are remembered for peer relevance checks.
const maxFinalizedHistory = 1024

// HeadListener is notified with the new status every time the local head or finalized checkpoint moves.
type HeadListener func(beacon.Status)

// State is the local chain view. It is safe for concurrent use.
type State struct {
	clock *beacon.Clock

	lk        sync.RWMutex
	status    beacon.Status
	finalized map[beacon.Epoch]beacon.Root
	// oldest finalized epoch still in the history
	oldest    beacon.Epoch
	listeners []HeadListener
}

// NewState creates a State sitting at genesis.
func NewState(clock *beacon.Clock) *State {
	return &State{
		clock: clock,
		status: beacon.Status{
			ForkDigest: clock.Config().ForkDigest,
		},
		finalized: map[beacon.Epoch]beacon.Root{0: {}},
	}
}

// Status returns the status announced to peers.
func (s *State) Status() beacon.Status {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.status
}

func (s *State) CurrentSlot() beacon.Slot {
	return s.clock.CurrentSlot()
}

func (s *State) Config() beacon.Config {
	return s.clock.Config()
}

// FinalizedRoot returns the finalized root at the epoch if it is still remembered.
func (s *State) FinalizedRoot(epoch beacon.Epoch) (beacon.Root, bool) {
	s.lk.RLock()
	defer s.lk.RUnlock()
	root, ok := s.finalized[epoch]
	return root, ok
}

// SetHead moves the local head and finalized checkpoint and notifies listeners.
func (s *State) SetHead(headRoot beacon.Root, headSlot beacon.Slot, finRoot beacon.Root, finEpoch beacon.Epoch) {
	s.lk.Lock()
	s.status.HeadRoot = headRoot
	s.status.HeadSlot = headSlot
	finalizedMoved := finEpoch != s.status.FinalizedEpoch || finRoot != s.status.FinalizedRoot
	s.status.FinalizedRoot = finRoot
	s.status.FinalizedEpoch = finEpoch
	s.finalized[finEpoch] = finRoot
	for len(s.finalized) > maxFinalizedHistory {
		delete(s.finalized, s.oldest)
		s.oldest++
	}
	status := s.status
	listeners := s.listeners
	s.lk.Unlock()

	log.Debugw("head updated",
		"head_slot", headSlot,
		"head_root", headRoot,
		"finalized_epoch", finEpoch,
		"finalized_moved", finalizedMoved,
	)
	for _, l := range listeners {
		l(status)
	}
}

// SubscribeHead registers a listener called synchronously from SetHead.
func (s *State) SubscribeHead(l HeadListener) {
	s.lk.Lock()
	defer s.lk.Unlock()
	s.listeners = append(s.listeners, l)
}
