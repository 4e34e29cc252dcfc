package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prizepool.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.ListenAddress)
	require.Equal(t, "leveldb", cfg.StorageBackend)
	require.Equal(t, float64(120), cfg.Gateway.RequestsPerMinute)
	_, err = os.Stat(path)
	require.NoError(t, err, "default config must be written to disk")
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prizepool.toml")
	contents := `
ListenAddress = ":9090"
StorageBackend = "bolt"

[staking]
RewardRatePerSecond = "1000000000000000000"
Authority = "0x00000000000000000000000000000000000000ad"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.ListenAddress)
	require.Equal(t, "bolt", cfg.StorageBackend)
	require.Equal(t, "1000000000000000000", cfg.Staking.RewardRatePerSecond)
	// Unset fields fall back to defaults.
	require.Equal(t, "./prizepool-data", cfg.DataDir)
	require.Equal(t, int64(2), cfg.Lottery.DeliveryDelaySeconds)
}
