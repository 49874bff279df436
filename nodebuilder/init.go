package nodebuilder

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/beaconnode/beacon-node/params"
)

// Init initializes the Node FileSystem Store for the given network in the directory under 'path'.
func Init(cfg Config, path string, net params.Network) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := storePath(path)
	if err != nil {
		return err
	}
	log.Infof("Initializing %s Node Store over '%s'", net, path)

	err = initRoot(path)
	if err != nil {
		return err
	}

	unlock, err := tryLock(path)
	if err != nil {
		return err
	}
	defer unlock()

	err = initDir(dataPath(path))
	if err != nil {
		return err
	}

	err = initDir(pprofPath(path))
	if err != nil {
		return err
	}

	cfgPath := configPath(path)
	err = SaveConfig(cfgPath, &cfg)
	if err != nil {
		return err
	}
	log.Infow("Saving config", "path", cfgPath)
	log.Info("Node Store initialized")
	return nil
}

// Reset removes the Node data of the Store under 'path', keeping its config. The next start
// generates a new identity and forgets banned addresses and known peers.
func Reset(path string) error {
	path, err := storePath(path)
	if err != nil {
		return err
	}

	unlock, err := tryLock(path)
	if err != nil {
		return err
	}
	defer unlock()

	log.Infow("Resetting Node data", "path", path)
	if err = os.RemoveAll(dataPath(path)); err != nil {
		return err
	}
	return initDir(dataPath(path))
}

// IsInit checks whether FileSystem Store was setup under given 'path'.
// If any required file/subdirectory does not exist, then false is reported.
func IsInit(path string) bool {
	path, err := storePath(path)
	if err != nil {
		log.Errorw("parsing store path", "path", path, "err", err)
		return false
	}

	_, err = LoadConfig(configPath(path)) // load the Config and implicitly check for its existence
	if err != nil {
		log.Debugw("loading config", "path", path, "err", err)
		return false
	}

	return exists(dataPath(path))
}

const perms = 0755

// initRoot initializes(creates) directory if not created and check if it is writable
func initRoot(path string) error {
	err := initDir(path)
	if err != nil {
		return err
	}

	// check for writing permissions
	f, err := os.Create(filepath.Join(path, ".check"))
	if err != nil {
		return err
	}

	err = f.Close()
	if err != nil {
		return err
	}

	return os.Remove(f.Name())
}

// initDir creates a dir if not exist
func initDir(path string) error {
	if exists(path) {
		return nil
	}
	return os.Mkdir(path, perms)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
