package nodebuilder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	dsbadger "github.com/ipfs/go-ds-badger4"
	"github.com/mitchellh/go-homedir"

	"github.com/beaconnode/beacon-node/params"
)

var (
	// ErrOpened is thrown on attempt to open already open/in-use Store.
	ErrOpened = errors.New("node: store is in use")
	// ErrNotInited is thrown on attempt to open Store without initialization.
	ErrNotInited = errors.New("node: store is not initialized")
	// ErrNoOpenStore is thrown when no opened Store is found.
	ErrNoOpenStore = errors.New("node: no opened store found")
)

// Store encapsulates storage for the Node. Basically, it is the Store of all Stores.
// It provides access for the Node data stored in root directory e.g. '~/.beacon-node'.
type Store interface {
	// Path reports the FileSystem path of Store.
	Path() string

	// Datastore provides a Datastore - a KV store for the p2p identity, banned addresses, peer
	// metadata and known peers.
	Datastore() (datastore.Batching, error)

	// Config loads the stored Node config.
	Config() (*Config, error)

	// PutConfig alters the stored Node config.
	PutConfig(*Config) error

	// Close closes the Store freeing up acquired resources and locks.
	Close() error
}

// OpenStore creates new FS Store under the given 'path'.
// To be opened the Store must be initialized first, otherwise ErrNotInited is thrown.
// OpenStore takes a file Lock on directory, hence only one Store can be opened at a time under the
// given 'path', otherwise ErrOpened is thrown.
func OpenStore(path string) (Store, error) {
	path, err := storePath(path)
	if err != nil {
		return nil, err
	}

	flk := flock.New(lockPath(path))
	ok, err := flk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking file: %w", err)
	}
	if !ok {
		return nil, ErrOpened
	}

	if !IsInit(path) {
		flk.Unlock() //nolint:errcheck
		return nil, ErrNotInited
	}

	return &fsStore{
		path:    path,
		dirLock: flk,
	}, nil
}

func (f *fsStore) Path() string {
	return f.path
}

func (f *fsStore) Config() (*Config, error) {
	cfg, err := LoadConfig(configPath(f.path))
	if err != nil {
		return nil, fmt.Errorf("node: can't load Config: %w", err)
	}

	return cfg, nil
}

func (f *fsStore) PutConfig(cfg *Config) error {
	err := SaveConfig(configPath(f.path), cfg)
	if err != nil {
		return fmt.Errorf("node: can't save Config: %w", err)
	}

	return nil
}

func (f *fsStore) Datastore() (datastore.Batching, error) {
	f.dataMu.Lock()
	defer f.dataMu.Unlock()
	if f.data != nil {
		return f.data, nil
	}

	opts := dsbadger.DefaultOptions // this should be copied
	// every write goes through its own transaction, so conflicts can't happen
	opts.Options = opts.Options.WithDetectConflicts(false)
	// the store only keeps small records, so keep the tables and the value log small as well
	opts.Options = opts.Options.WithMemTableSize(16 << 20).WithValueLogFileSize(64 << 20)

	ds, err := dsbadger.NewDatastore(dataPath(f.path), &opts)
	if err != nil {
		return nil, fmt.Errorf("node: can't open Badger Datastore: %w", err)
	}

	f.data = ds
	return ds, nil
}

func (f *fsStore) Close() (err error) {
	err = errors.Join(err, f.dirLock.Unlock())
	f.dataMu.Lock()
	if f.data != nil {
		err = errors.Join(err, f.data.Close())
	}
	f.dataMu.Unlock()
	return
}

type fsStore struct {
	path string

	dataMu  sync.Mutex
	data    datastore.Batching
	dirLock *flock.Flock // protects directory
}

// NewMemStore creates an in-memory Store for Node.
// Useful for testing.
func NewMemStore() Store {
	return &memStore{
		data: dssync.MutexWrap(datastore.NewMapDatastore()),
	}
}

type memStore struct {
	data datastore.Batching

	cfgLk sync.Mutex
	cfg   *Config
}

func (m *memStore) Path() string {
	return ""
}

func (m *memStore) Datastore() (datastore.Batching, error) {
	return m.data, nil
}

func (m *memStore) Config() (*Config, error) {
	m.cfgLk.Lock()
	defer m.cfgLk.Unlock()
	if m.cfg == nil {
		return nil, ErrNotInited
	}
	return m.cfg, nil
}

func (m *memStore) PutConfig(cfg *Config) error {
	m.cfgLk.Lock()
	defer m.cfgLk.Unlock()
	m.cfg = cfg
	return nil
}

func (m *memStore) Close() error {
	return nil
}

// DefaultNodeStorePath constructs the default node store path for the given network.
// Mainnet lives under '~/.beacon-node', every other network under '~/.beacon-node-<network>'.
var DefaultNodeStorePath = func(net params.Network) (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	dir := ".beacon-node"
	if net != params.Mainnet {
		dir = fmt.Sprintf("%s-%s", dir, strings.ToLower(net.String()))
	}
	return filepath.Join(home, dir), nil
}

// DiscoverOpened finds a path of an opened Node Store. Networks are checked in the order they are
// listed in params, and the first store whose lock is held wins.
func DiscoverOpened() (string, error) {
	for _, net := range params.Networks() {
		path, err := DefaultNodeStorePath(net)
		if err != nil {
			return "", err
		}

		if !IsInit(path) {
			continue
		}
		ok, err := IsOpened(path)
		if err != nil {
			return "", err
		}
		if ok {
			return path, nil
		}
	}
	return "", ErrNoOpenStore
}

// IsOpened checks whether the Store under the given 'path' is locked by a running Node.
func IsOpened(path string) (bool, error) {
	path, err := storePath(path)
	if err != nil {
		return false, err
	}

	flk := flock.New(lockPath(path))
	ok, err := flk.TryLock()
	if err != nil {
		return false, fmt.Errorf("locking file: %w", err)
	}
	if ok {
		return false, flk.Unlock()
	}
	return true, nil
}

// ConfigPath reports the location of the config file of the Store under 'path'.
func ConfigPath(path string) (string, error) {
	path, err := storePath(path)
	if err != nil {
		return "", err
	}
	return configPath(path), nil
}

func storePath(path string) (string, error) {
	return homedir.Expand(filepath.Clean(path))
}

func configPath(base string) string {
	return filepath.Join(base, "config.toml")
}

func lockPath(base string) string {
	return filepath.Join(base, "lock")
}

func dataPath(base string) string {
	return filepath.Join(base, "data")
}

func pprofPath(base string) string {
	return filepath.Join(base, "pprof")
}
