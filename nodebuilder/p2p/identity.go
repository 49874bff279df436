package p2p

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/ipfs/go-datastore"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
)

var keyKey = datastore.NewKey("/p2p/key")

// Key provides a networking private key of the node. The key is generated once and kept in the
// node's datastore.
func Key(ctx context.Context, ds datastore.Batching) (crypto.PrivKey, error) {
	bytes, err := ds.Get(ctx, keyKey)
	switch {
	case err == nil:
		return crypto.UnmarshalPrivateKey(bytes)
	case !errors.Is(err, datastore.ErrNotFound):
		return nil, fmt.Errorf("p2p: loading key: %w", err)
	}

	// No existing private key in the datastore so generate a new one
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, err
	}
	bytes, err = crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, err
	}
	if err = ds.Put(ctx, keyKey, bytes); err != nil {
		return nil, fmt.Errorf("p2p: storing key: %w", err)
	}
	log.Infow("generated new p2p identity")
	return priv, nil
}

func id(key crypto.PrivKey, pstore peerstore.Peerstore) (peer.ID, error) {
	id, err := peer.IDFromPrivateKey(key)
	if err != nil {
		return "", err
	}

	err = pstore.AddPrivKey(id, key)
	if err != nil {
		return "", err
	}

	return id, pstore.AddPubKey(id, key.GetPublic())
}
