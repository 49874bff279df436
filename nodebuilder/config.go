package nodebuilder

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/imdario/mergo"

	"github.com/beaconnode/beacon-node/nodebuilder/network"
	"github.com/beaconnode/beacon-node/nodebuilder/p2p"
)

// ConfigLoader defines a function that loads a config from any source.
type ConfigLoader func() (*Config, error)

// Config is main configuration structure for a Node.
// It combines configuration units for all Node subsystems.
type Config struct {
	P2P     p2p.Config
	Network network.Config
}

// DefaultConfig provides a default Config.
func DefaultConfig() *Config {
	return &Config{
		P2P:     p2p.DefaultConfig(),
		Network: network.DefaultConfig(),
	}
}

// Validate checks every configuration unit.
func (cfg *Config) Validate() error {
	if err := cfg.P2P.Validate(); err != nil {
		return err
	}
	return cfg.Network.Validate()
}

// SaveConfig saves Config 'cfg' under the given 'path'.
func SaveConfig(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return cfg.Encode(f)
}

// LoadConfig loads Config from the given 'path'.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	return &cfg, cfg.Decode(f)
}

// RemoveConfig removes the Config from the given store path.
func RemoveConfig(path string) (err error) {
	path, err = storePath(path)
	if err != nil {
		return
	}

	unlock, err := tryLock(path)
	if err != nil {
		return err
	}
	defer unlock()

	return os.Remove(configPath(path))
}

// UpdateConfig loads the node's config and fills values missing in it with the defaults, saving the
// result back into the node's config path. Values set by the user are never overridden.
func UpdateConfig(path string) (err error) {
	path, err = storePath(path)
	if err != nil {
		return err
	}

	unlock, err := tryLock(path)
	if err != nil {
		return err
	}
	defer unlock()

	cfgPath := configPath(path)
	cfg, err := LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	cfg, err = updateConfig(cfg, DefaultConfig())
	if err != nil {
		return err
	}
	return SaveConfig(cfgPath, cfg)
}

// updateConfig merges new values from the new config into the old
// config, returning the updated old config.
func updateConfig(oldCfg, newCfg *Config) (*Config, error) {
	err := mergo.Merge(oldCfg, newCfg, mergo.WithOverrideEmptySlice)
	return oldCfg, err
}

// Encode encodes a given Config into w.
func (cfg *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Decode decodes a Config from a given reader r.
func (cfg *Config) Decode(r io.Reader) error {
	_, err := toml.NewDecoder(r).Decode(cfg)
	return err
}

// tryLock takes the directory lock of the store under path without waiting for it.
func tryLock(path string) (func(), error) {
	flk := flock.New(lockPath(path))
	ok, err := flk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking file: %w", err)
	}
	if !ok {
		return nil, ErrOpened
	}
	return func() { flk.Unlock() }, nil //nolint:errcheck
}
