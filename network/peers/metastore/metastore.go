// Package metastore persists what peers announce about themselves: their metadata and last
// accepted status.
package metastore

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/namespace"
	logging "github.com/ipfs/go-log/v2"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/beaconnode/beacon-node/beacon"
)

var (
	storePrefix    = datastore.NewKey("peermeta")
	metadataPrefix = datastore.NewKey("metadata")
	statusPrefix   = datastore.NewKey("status")

	log = logging.Logger("peers/metastore")
)

// DefaultCacheSize is the amount of peers whose records are kept in memory.
const DefaultCacheSize = 1024

// Store keeps peer metadata and statuses in a datastore behind an in-memory cache.
type Store struct {
	ds datastore.Datastore

	metadata *lru.Cache[peer.ID, beacon.Metadata]
	status   *lru.Cache[peer.ID, beacon.Status]
}

// NewStore creates a new Store backed by the given datastore.
func NewStore(ds datastore.Datastore, cacheSize int) (*Store, error) {
	metadata, err := lru.New[peer.ID, beacon.Metadata](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("metastore: creating metadata cache: %w", err)
	}
	status, err := lru.New[peer.ID, beacon.Status](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("metastore: creating status cache: %w", err)
	}

	return &Store{
		ds:       namespace.Wrap(ds, storePrefix),
		metadata: metadata,
		status:   status,
	}, nil
}

// Metadata returns the last metadata received from the peer.
func (s *Store) Metadata(ctx context.Context, id peer.ID) (beacon.Metadata, bool) {
	if md, ok := s.metadata.Get(id); ok {
		return md, true
	}

	var md beacon.Metadata
	if !s.load(ctx, metadataKey(id), &md) {
		return md, false
	}
	s.metadata.Add(id, md)
	return md, true
}

// SetMetadata overwrites the peer's metadata.
func (s *Store) SetMetadata(ctx context.Context, id peer.ID, md beacon.Metadata) error {
	s.metadata.Add(id, md)
	return s.put(ctx, metadataKey(id), &md)
}

// Status returns the last accepted status of the peer.
func (s *Store) Status(ctx context.Context, id peer.ID) (beacon.Status, bool) {
	if st, ok := s.status.Get(id); ok {
		return st, true
	}

	var st beacon.Status
	if !s.load(ctx, statusKey(id), &st) {
		return st, false
	}
	s.status.Add(id, st)
	return st, true
}

// SetStatus overwrites the peer's status.
func (s *Store) SetStatus(ctx context.Context, id peer.ID, st beacon.Status) error {
	s.status.Add(id, st)
	return s.put(ctx, statusKey(id), &st)
}

type sszRecord interface {
	MarshalSSZ() ([]byte, error)
	UnmarshalSSZ([]byte) error
}

func (s *Store) load(ctx context.Context, key datastore.Key, rec sszRecord) bool {
	bin, err := s.ds.Get(ctx, key)
	if errors.Is(err, datastore.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Warnw("loading record", "key", key.String(), "err", err)
		return false
	}

	if err = rec.UnmarshalSSZ(bin); err != nil {
		log.Warnw("corrupted record detected, deleting", "key", key.String(), "err", err)
		if err := s.ds.Delete(ctx, key); err != nil {
			log.Errorw("deleting corrupted record", "key", key.String(), "err", err)
		}
		return false
	}
	return true
}

func (s *Store) put(ctx context.Context, key datastore.Key, rec sszRecord) error {
	bin, err := rec.MarshalSSZ()
	if err != nil {
		return fmt.Errorf("metastore: marshal %s: %w", key, err)
	}
	if err = s.ds.Put(ctx, key, bin); err != nil {
		return fmt.Errorf("metastore: writing %s to datastore: %w", key, err)
	}
	return nil
}

func metadataKey(id peer.ID) datastore.Key {
	return metadataPrefix.ChildString(id.String())
}

func statusKey(id peer.ID) datastore.Key {
	return statusPrefix.ChildString(id.String())
}
