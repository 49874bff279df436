package network

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseArgs(t *testing.T, args ...string) (*Config, error) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(Flags())
	require.NoError(t, cmd.ParseFlags(args))

	cfg := DefaultConfig()
	return &cfg, ParseFlags(cmd, &cfg)
}

func TestParseFlags(t *testing.T) {
	def := DefaultConfig()

	cfg, err := parseArgs(t)
	require.NoError(t, err)
	assert.Equal(t, def, *cfg)

	cfg, err = parseArgs(t, "--"+targetPeersFlag, "500")
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.TargetPeers)
	assert.Equal(t, 500, cfg.MaxPeers)

	cfg, err = parseArgs(t, "--"+targetPeersFlag, "10", "--"+maxPeersFlag, "20")
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.TargetPeers)
	assert.Equal(t, 20, cfg.MaxPeers)

	_, err = parseArgs(t, "--"+targetPeersFlag, "10", "--"+maxPeersFlag, "5")
	require.Error(t, err)

	cfg, err = parseArgs(t, "--"+subnetsFlag, "1,63")
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 63}, cfg.AttestationSubnets)

	_, err = parseArgs(t, "--"+subnetsFlag, "64")
	require.Error(t, err)
}
