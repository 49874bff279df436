package peers

import (
	"fmt"

	"github.com/beaconnode/beacon-node/beacon"
)

// futureSlotTolerance is how many slots a remote head may be ahead of the local clock.
const futureSlotTolerance = 1

// IrrelevantReason tells why a remote status was rejected.
type IrrelevantReason int

const (
	ForkDigestMismatch IrrelevantReason = iota
	HeadSlotInFuture
	FinalizedRootMismatch
)

func (r IrrelevantReason) String() string {
	switch r {
	case ForkDigestMismatch:
		return "fork_digest_mismatch"
	case HeadSlotInFuture:
		return "head_slot_in_future"
	case FinalizedRootMismatch:
		return "finalized_root_mismatch"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// RelevanceError is returned for a remote status that is not on the local chain.
type RelevanceError struct {
	Reason IrrelevantReason
	Local  string
	Remote string
}

func (e *RelevanceError) Error() string {
	return fmt.Sprintf("irrelevant peer: %s: local %s, remote %s", e.Reason, e.Local, e.Remote)
}

// assertPeerRelevance checks that the remote status belongs to the same chain as ours.
func assertPeerRelevance(remote beacon.Status, chain ChainState) error {
	local := chain.Status()
	if remote.ForkDigest != local.ForkDigest {
		return &RelevanceError{
			Reason: ForkDigestMismatch,
			Local:  local.ForkDigest.String(),
			Remote: remote.ForkDigest.String(),
		}
	}

	current := chain.CurrentSlot()
	if remote.HeadSlot > current+futureSlotTolerance {
		return &RelevanceError{
			Reason: HeadSlotInFuture,
			Local:  fmt.Sprintf("slot %d", current),
			Remote: fmt.Sprintf("slot %d", remote.HeadSlot),
		}
	}

	// a remote that finalized further than us can't be checked yet
	if remote.FinalizedEpoch > local.FinalizedEpoch {
		return nil
	}
	if remote.FinalizedEpoch == 0 && remote.FinalizedRoot.IsZero() {
		return nil
	}

	expected, ok := local.FinalizedRoot, true
	if remote.FinalizedEpoch != local.FinalizedEpoch {
		expected, ok = chain.FinalizedRoot(remote.FinalizedEpoch)
	}
	if ok && expected != remote.FinalizedRoot {
		return &RelevanceError{
			Reason: FinalizedRootMismatch,
			Local:  fmt.Sprintf("%s@%d", expected, remote.FinalizedEpoch),
			Remote: fmt.Sprintf("%s@%d", remote.FinalizedRoot, remote.FinalizedEpoch),
		}
	}
	return nil
}
