package pidstore

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	"github.com/ipfs/go-datastore/sync"
	libhost "github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mocknet "github.com/libp2p/go-libp2p/p2p/net/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	mn, err := mocknet.FullMeshConnected(5)
	require.NoError(t, err)

	addrinfos := make([]peer.AddrInfo, 5)
	for i, host := range mn.Hosts() {
		addrinfos[i] = *libhost.InfoFromHost(host)
	}

	store := NewPeerIDStore(sync.MutexWrap(datastore.NewMapDatastore()))

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, store.Put(ctx, addrinfos))

	retrieved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, retrieved, len(addrinfos))
	for i := range addrinfos {
		assert.Equal(t, addrinfos[i].String(), retrieved[i].String())
	}
}

func TestLoadCorrupted(t *testing.T) {
	ctx := context.Background()
	ds := sync.MutexWrap(datastore.NewMapDatastore())
	require.NoError(t, namespace.Wrap(ds, storePrefix).Put(ctx, peersKey, []byte("{not json")))

	store := NewPeerIDStore(ds)
	peers, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, peers)

	has, err := ds.Has(ctx, storePrefix.Child(peersKey))
	require.NoError(t, err)
	assert.False(t, has)
}
