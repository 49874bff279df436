package nodebuilder

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWriteRead(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	in := DefaultConfig()

	err := in.Encode(buf)
	require.NoError(t, err)

	var out Config
	err = out.Decode(buf)
	require.NoError(t, err)
	assert.EqualValues(t, in, &out)
}

func TestUpdateConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(*DefaultConfig(), dir, "private"))

	// an older config without the network section and a user-set target
	old := &Config{}
	old.P2P = DefaultConfig().P2P
	old.Network.TargetPeers = 70
	require.NoError(t, SaveConfig(configPath(dir), old))

	require.NoError(t, UpdateConfig(dir))

	cfg, err := LoadConfig(configPath(dir))
	require.NoError(t, err)
	assert.Equal(t, 70, cfg.Network.TargetPeers)
	assert.Equal(t, DefaultConfig().Network.MaxPeers, cfg.Network.MaxPeers)
	assert.Equal(t, 30*time.Second, cfg.Network.HeartbeatInterval)
}

func TestRemoveConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(*DefaultConfig(), dir, "private"))
	require.True(t, IsInit(dir))

	require.NoError(t, RemoveConfig(dir))
	assert.False(t, IsInit(dir))
}
