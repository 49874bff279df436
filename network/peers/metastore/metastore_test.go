package metastore

import (
	"context"
	"testing"
	"time"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/sync"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaconnode/beacon-node/beacon"
)

func TestStore_PutLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer t.Cleanup(cancel)

	ds := sync.MutexWrap(datastore.NewMapDatastore())
	store, err := NewStore(ds, DefaultCacheSize)
	require.NoError(t, err)

	id := peer.ID("peer-1")
	_, ok := store.Metadata(ctx, id)
	require.False(t, ok)

	md := beacon.Metadata{SeqNumber: 2, Attnets: beacon.NewAttnets(4)}
	st := beacon.Status{HeadSlot: 10, FinalizedEpoch: 1}
	require.NoError(t, store.SetMetadata(ctx, id, md))
	require.NoError(t, store.SetStatus(ctx, id, st))

	got, ok := store.Metadata(ctx, id)
	require.True(t, ok)
	assert.Equal(t, md, got)

	// a fresh store over the same datastore reads the records back from disk
	reopened, err := NewStore(ds, DefaultCacheSize)
	require.NoError(t, err)
	got, ok = reopened.Metadata(ctx, id)
	require.True(t, ok)
	assert.Equal(t, md, got)
	gotStatus, ok := reopened.Status(ctx, id)
	require.True(t, ok)
	assert.Equal(t, st, gotStatus)
}

func TestStore_OverwritesMetadata(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(sync.MutexWrap(datastore.NewMapDatastore()), DefaultCacheSize)
	require.NoError(t, err)

	id := peer.ID("peer-1")
	require.NoError(t, store.SetMetadata(ctx, id, beacon.Metadata{SeqNumber: 5}))
	// a lower sequence number is still stored
	require.NoError(t, store.SetMetadata(ctx, id, beacon.Metadata{SeqNumber: 3, Attnets: beacon.NewAttnets(1)}))

	got, ok := store.Metadata(ctx, id)
	require.True(t, ok)
	assert.EqualValues(t, 3, got.SeqNumber)
	assert.True(t, got.Attnets.Has(1))
}

func TestStore_CorruptedRecord(t *testing.T) {
	ctx := context.Background()
	ds := sync.MutexWrap(datastore.NewMapDatastore())
	store, err := NewStore(ds, DefaultCacheSize)
	require.NoError(t, err)

	id := peer.ID("peer-1")
	key := storePrefix.Child(metadataKey(id))
	require.NoError(t, ds.Put(ctx, key, []byte{1, 2, 3}))

	_, ok := store.Metadata(ctx, id)
	require.False(t, ok)

	has, err := ds.Has(ctx, key)
	require.NoError(t, err)
	assert.False(t, has)
}
