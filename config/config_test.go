package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("AUTOBID_CHAIN_ID", "")

	cfg, err := Parse([]byte("api:\n  relay_base: https://relay.example\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://relay.example", cfg.API.RelayBase)
	assert.Equal(t, 5*time.Second, cfg.AutoPauseInterval())
	assert.Equal(t, time.Minute, cfg.BidExpiry())
	assert.Equal(t, 30*time.Second, cfg.SubmitTimeout())
	assert.Equal(t, int32(6), cfg.Chain.Decimals)
	assert.Equal(t, int64(137), cfg.Chain.ChainID)
	assert.Equal(t, "autobid.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("AUTOBID_PRIVATE_KEY", "0xabc")
	t.Setenv("AUTOBID_RPC_URL", "http://rpc.local")
	t.Setenv("AUTOBID_CHAIN_ID", "80002")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Parse([]byte(`
chain:
  rpc_url: http://from-yaml
  chain_id: 1
log:
  level: warn
`))
	require.NoError(t, err)

	assert.Equal(t, "0xabc", cfg.Chain.PrivateKey)
	assert.Equal(t, "http://rpc.local", cfg.Chain.RPCURL)
	assert.Equal(t, int64(80002), cfg.Chain.ChainID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestParse_BadChainID(t *testing.T) {
	t.Setenv("AUTOBID_CHAIN_ID", "polygon")
	_, err := Parse([]byte("{}"))
	assert.Error(t, err)
}

func TestParse_PrivateKeyIgnoredInYAML(t *testing.T) {
	t.Setenv("AUTOBID_PRIVATE_KEY", "")
	t.Setenv("AUTOBID_CHAIN_ID", "")
	cfg, err := Parse([]byte("chain:\n  private_key: 0xdeadbeef\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Chain.PrivateKey)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("AUTOBID_CHAIN_ID", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  auto_pause_interval_seconds: 2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.AutoPauseInterval())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
