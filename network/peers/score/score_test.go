package score

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *clock.Mock) {
	mock := clock.NewMock()
	s, err := NewStore(DefaultParameters(), mock)
	require.NoError(t, err)
	return s, mock
}

func TestStore_States(t *testing.T) {
	s, _ := newTestStore(t)
	p := peer.ID("peer")

	assert.Equal(t, Healthy, s.State(p))
	assert.Zero(t, s.Score(p))

	assert.Equal(t, Healthy, s.ApplyDelta(p, -20, "test"))
	assert.Equal(t, Disconnect, s.ApplyDelta(p, -1, "test"))
	assert.Equal(t, Banned, s.ApplyDelta(p, -40, "test"))
	assert.Equal(t, Banned, s.State(p))

	s.ApplyDelta(p, -1000, "test")
	assert.Equal(t, float64(MinScore), s.Score(p))
}

func TestStore_Decay(t *testing.T) {
	s, mock := newTestStore(t)
	p := peer.ID("peer")

	s.ApplyDelta(p, -40, "test")
	require.Equal(t, Disconnect, s.State(p))

	mock.Add(DefaultParameters().HalfLife)
	assert.InDelta(t, -20, s.Score(p), 0.001)
	assert.Equal(t, Healthy, s.State(p))
}

func TestStore_BanFreezesDecay(t *testing.T) {
	s, mock := newTestStore(t)
	p := peer.ID("peer")
	params := DefaultParameters()

	require.Equal(t, Banned, s.ApplyDelta(p, -60, "test"))

	mock.Add(params.BanDuration - time.Second)
	assert.Equal(t, Banned, s.State(p))
	assert.InDelta(t, -60, s.Score(p), 0.001)

	// ban is over, the score starts decaying from where it was
	mock.Add(time.Second + params.HalfLife)
	assert.InDelta(t, -30, s.Score(p), 0.001)
	assert.Equal(t, Disconnect, s.State(p))
}

func TestStore_MaxTracked(t *testing.T) {
	params := DefaultParameters()
	params.MaxTracked = 1
	s, err := NewStore(params, clock.NewMock())
	require.NoError(t, err)

	s.ApplyDelta("a", -30, "test")
	s.ApplyDelta("b", -30, "test")
	assert.Equal(t, Healthy, s.State("a"))
	assert.Equal(t, Disconnect, s.State("b"))
}

func TestParameters_Validate(t *testing.T) {
	require.NoError(t, DefaultParameters().Validate())

	p := DefaultParameters()
	p.HalfLife = 0
	require.Error(t, p.Validate())

	_, err := NewStore(Parameters{}, nil)
	require.Error(t, err)
}
