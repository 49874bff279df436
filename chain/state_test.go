package chain

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconnode/beacon-node/beacon"
)

func TestState_SetHead(t *testing.T) {
	mock := clock.NewMock()
	cfg := beacon.Config{
		SlotsPerEpoch:  32,
		SecondsPerSlot: 12,
		GenesisTime:    mock.Now(),
		ForkDigest:     beacon.ForkDigest{1, 2, 3, 4},
	}
	st := NewState(beacon.NewClock(cfg, mock))

	require.Equal(t, cfg.ForkDigest, st.Status().ForkDigest)
	root, ok := st.FinalizedRoot(0)
	require.True(t, ok)
	require.True(t, root.IsZero())

	var notified []beacon.Status
	st.SubscribeHead(func(s beacon.Status) {
		notified = append(notified, s)
	})

	st.SetHead(beacon.Root{9}, 70, beacon.Root{7}, 1)
	require.Len(t, notified, 1)
	assert.Equal(t, beacon.Slot(70), notified[0].HeadSlot)
	assert.Equal(t, st.Status(), notified[0])

	root, ok = st.FinalizedRoot(1)
	require.True(t, ok)
	assert.Equal(t, beacon.Root{7}, root)
	_, ok = st.FinalizedRoot(2)
	assert.False(t, ok)
}

func TestState_FinalizedHistoryBounded(t *testing.T) {
	mock := clock.NewMock()
	st := NewState(beacon.NewClock(beacon.Config{SlotsPerEpoch: 1, SecondsPerSlot: 1, GenesisTime: mock.Now()}, mock))

	for e := beacon.Epoch(1); e <= maxFinalizedHistory+10; e++ {
		st.SetHead(beacon.Root{1}, beacon.Slot(e), beacon.Root{byte(e)}, e)
	}

	_, ok := st.FinalizedRoot(0)
	assert.False(t, ok)
	_, ok = st.FinalizedRoot(maxFinalizedHistory + 10)
	assert.True(t, ok)
}
