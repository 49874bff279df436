package peers

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconnode/beacon-node/beacon"
	"github.com/beaconnode/beacon-node/chain"
)

func testChainConfig(genesis time.Time) beacon.Config {
	return beacon.Config{
		SlotsPerEpoch:  32,
		SecondsPerSlot: 12,
		GenesisTime:    genesis,
		ForkDigest:     beacon.ForkDigest{0xaa, 0xbb, 0xcc, 0xdd},
	}
}

func TestAssertPeerRelevance(t *testing.T) {
	clk := clock.NewMock()
	cfg := testChainConfig(clk.Now())
	state := chain.NewState(beacon.NewClock(cfg, clk))
	clk.Add(100 * cfg.SlotDuration())

	oldRoot := beacon.Root{1}
	finRoot := beacon.Root{2}
	state.SetHead(beacon.Root{9}, 90, oldRoot, 1)
	state.SetHead(beacon.Root{10}, 99, finRoot, 2)

	relevant := state.Status()

	tests := []struct {
		name   string
		modify func(*beacon.Status)
		reason IrrelevantReason
		ok     bool
	}{
		{"same status", func(*beacon.Status) {}, 0, true},
		{"head one slot ahead", func(s *beacon.Status) { s.HeadSlot = 101 }, 0, true},
		{"fork digest", func(s *beacon.Status) { s.ForkDigest = beacon.ForkDigest{1} }, ForkDigestMismatch, false},
		{"head in the future", func(s *beacon.Status) { s.HeadSlot = 102 }, HeadSlotInFuture, false},
		{"finalized ahead of us", func(s *beacon.Status) {
			s.FinalizedEpoch = 3
			s.FinalizedRoot = beacon.Root{7}
		}, 0, true},
		{"same finalized epoch, other root", func(s *beacon.Status) {
			s.FinalizedRoot = beacon.Root{7}
		}, FinalizedRootMismatch, false},
		{"older known finalized epoch", func(s *beacon.Status) {
			s.FinalizedEpoch = 1
			s.FinalizedRoot = oldRoot
		}, 0, true},
		{"older known finalized epoch, other root", func(s *beacon.Status) {
			s.FinalizedEpoch = 1
			s.FinalizedRoot = beacon.Root{8}
		}, FinalizedRootMismatch, false},
		{"genesis epoch, other root", func(s *beacon.Status) {
			s.FinalizedEpoch = 0
			s.FinalizedRoot = beacon.Root{8}
		}, FinalizedRootMismatch, false},
		{"genesis", func(s *beacon.Status) {
			s.FinalizedEpoch = 0
			s.FinalizedRoot = beacon.Root{}
		}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := relevant
			tt.modify(&remote)

			err := assertPeerRelevance(remote, state)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var relErr *RelevanceError
			require.ErrorAs(t, err, &relErr)
			assert.Equal(t, tt.reason, relErr.Reason)
		})
	}
}
