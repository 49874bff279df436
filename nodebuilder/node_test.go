package nodebuilder

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"

	"github.com/beaconnode/beacon-node/params"
)

func TestLifecycle(t *testing.T) {
	node := TestNode(t)
	require.NotNil(t, node)
	require.NotNil(t, node.Config)
	require.NotNil(t, node.Host)
	require.NotNil(t, node.Peers)
	require.NotNil(t, node.ReqResp)
	require.NotNil(t, node.Discovery)
	require.NotNil(t, node.Chain)
	require.Equal(t, params.Private, node.Network)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := node.Start(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, node.Host.Addrs())

	err = node.Stop(ctx)
	require.NoError(t, err)
}

func TestLifecycle_PeersBecomeUsable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	first, second := TestNode(t), TestNode(t)
	require.NoError(t, first.Start(ctx))
	require.NoError(t, second.Start(ctx))
	t.Cleanup(func() {
		require.NoError(t, first.Stop(context.Background()))
		require.NoError(t, second.Stop(context.Background()))
	})

	require.NoError(t, first.Host.Connect(ctx, *host.InfoFromHost(second.Host)))

	// both sides exchange status and mark each other usable
	for _, pair := range []struct {
		node   *Node
		remote peer.ID
	}{
		{first, second.Host.ID()},
		{second, first.Host.ID()},
	} {
		require.Eventually(t, func() bool {
			usable, err := pair.node.Peers.UsablePeers(ctx)
			return err == nil && len(usable) == 1 && usable[0] == pair.remote
		}, 30*time.Second, 100*time.Millisecond)
	}
}

func TestLifecycle_WithMetrics(t *testing.T) {
	var exports atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body) //nolint:errcheck
		if r.URL.Path == "/v1/metrics" {
			exports.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	node := TestNode(t,
		WithMetrics([]otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(strings.TrimPrefix(srv.URL, "http://")),
			otlpmetrichttp.WithInsecure(),
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, node.Start(ctx))
	// stopping the provider flushes the collected metrics
	require.NoError(t, node.Stop(ctx))
	assert.Positive(t, exports.Load())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := TestConfig()
	cfg.Network.TargetPeers = 0

	_, err := New(params.Private, MockStore(t, cfg))
	require.Error(t, err)
}

func TestNew_NotInited(t *testing.T) {
	_, err := New(params.Private, NewMemStore())
	require.ErrorIs(t, err, ErrNotInited)
}
