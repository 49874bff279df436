package reqresp

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/host"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconnode/beacon-node/beacon"
)

type staticStatus beacon.Status

func (s staticStatus) Status() beacon.Status {
	return beacon.Status(s)
}

type testNode struct {
	host   host.Host
	rr     *ReqResp
	status beacon.Status
	local  *LocalMetadata
}

func newTestPair(t *testing.T) (*testNode, *testNode) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	mn, err := mocknet.FullMeshConnected(2)
	require.NoError(t, err)
	t.Cleanup(func() { mn.Close() }) //nolint:errcheck

	nodes := make([]*testNode, 2)
	for i, h := range mn.Hosts() {
		status := beacon.Status{
			ForkDigest: beacon.ForkDigest{1, 2, 3, 4},
			HeadSlot:   beacon.Slot(100 * (i + 1)),
		}
		local := NewLocalMetadata(beacon.NewAttnets(beacon.SubnetID(i)))
		rr, err := New(h, staticStatus(status), local, WithRequestTimeout(5*time.Second))
		require.NoError(t, err)
		require.NoError(t, rr.WithMetrics())
		require.NoError(t, rr.Start(ctx))
		t.Cleanup(func() {
			require.NoError(t, rr.Stop(context.Background()))
		})
		nodes[i] = &testNode{host: h, rr: rr, status: status, local: local}
	}
	return nodes[0], nodes[1]
}

func subscribe(t *testing.T, h host.Host, evt interface{}) event.Subscription {
	sub, err := h.EventBus().Subscribe(evt)
	require.NoError(t, err)
	t.Cleanup(func() { sub.Close() }) //nolint:errcheck
	return sub
}

func nextEvent(t *testing.T, sub event.Subscription) interface{} {
	select {
	case e := <-sub.Out():
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

func TestReqResp_Status(t *testing.T) {
	a, b := newTestPair(t)
	sub := subscribe(t, b.host, new(EvtStatusReceived))

	remote, err := a.rr.Status(context.Background(), b.host.ID(), a.status)
	require.NoError(t, err)
	assert.Equal(t, b.status, remote)

	evt := nextEvent(t, sub).(EvtStatusReceived)
	assert.Equal(t, a.host.ID(), evt.Peer)
	assert.Equal(t, a.status, evt.Status)
}

func TestReqResp_Ping(t *testing.T) {
	a, b := newTestPair(t)
	sub := subscribe(t, b.host, new(EvtPingReceived))

	a.local.SetAttnets(beacon.NewAttnets(5, 6))
	b.local.SetAttnets(beacon.NewAttnets(7))
	b.local.SetAttnets(beacon.NewAttnets(8))

	seq, err := a.rr.Ping(context.Background(), b.host.ID())
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	evt := nextEvent(t, sub).(EvtPingReceived)
	assert.Equal(t, a.host.ID(), evt.Peer)
	assert.EqualValues(t, 1, evt.Seq)
}

func TestReqResp_Metadata(t *testing.T) {
	a, b := newTestPair(t)

	md, err := a.rr.Metadata(context.Background(), b.host.ID())
	require.NoError(t, err)
	assert.Equal(t, b.local.Metadata(), md)
	assert.True(t, md.Attnets.Has(1))
}

func TestReqResp_Goodbye(t *testing.T) {
	a, b := newTestPair(t)
	sub := subscribe(t, b.host, new(EvtGoodbyeReceived))

	err := a.rr.Goodbye(context.Background(), b.host.ID(), GoodbyeTooManyPeers)
	require.NoError(t, err)

	evt := nextEvent(t, sub).(EvtGoodbyeReceived)
	assert.Equal(t, a.host.ID(), evt.Peer)
	assert.Equal(t, GoodbyeTooManyPeers, evt.Reason)
}

func TestReqResp_InvalidRequest(t *testing.T) {
	a, b := newTestPair(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := a.host.NewStream(ctx, b.host.ID(), ProtocolID(MethodStatus))
	require.NoError(t, err)
	require.NoError(t, writePayload(stream, []byte{1, 2, 3}))
	require.NoError(t, stream.CloseWrite())

	var out beacon.Status
	err = readResponse(bufio.NewReader(stream), &out)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, ResultInvalidRequest, respErr.Code)
}

func TestReqResp_StoppedPeer(t *testing.T) {
	a, b := newTestPair(t)
	require.NoError(t, b.rr.Stop(context.Background()))

	_, err := a.rr.Ping(context.Background(), b.host.ID())
	require.Error(t, err)
}

func TestParameters_Validate(t *testing.T) {
	p := DefaultParameters()
	require.NoError(t, p.Validate())

	WithConcurrencyLimit(0)(p)
	require.Error(t, p.Validate())

	_, err := New(nil, nil, nil, WithRequestTimeout(-time.Second))
	require.Error(t, err)
}
