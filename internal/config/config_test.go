package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txplain/blocktree/internal/models"
)

func writeYAML(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadManualMappingsParsesKnownProtocols(t *testing.T) {
	path := writeYAML(t, `
- protocol: uniswap_v2
  address: "0xpool"
  init_block: 100
  token_info:
    - address: "0xtoken0"
      symbol: "WETH"
      decimals: 18
`)

	mappings, err := loadManualMappings(path)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "uniswap_v2", mappings[0].Protocol)
	assert.Equal(t, "0xpool", mappings[0].Address)
	assert.Equal(t, uint64(100), mappings[0].InitBlock)
	require.Len(t, mappings[0].Tokens, 1)
	assert.Equal(t, "WETH", mappings[0].Tokens[0].Symbol)
}

func TestLoadManualMappingsRejectsUnknownProtocol(t *testing.T) {
	path := writeYAML(t, `
- protocol: not_a_real_protocol
  address: "0xpool"
`)

	_, err := loadManualMappings(path)
	require.Error(t, err)

	ce, ok := err.(*models.ClassificationError)
	require.True(t, ok)
	assert.True(t, ce.IsFatal())
}

func TestLoadManualMappingsMissingFileErrors(t *testing.T) {
	_, err := loadManualMappings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadManualMappingsMalformedYAMLErrors(t *testing.T) {
	path := writeYAML(t, "not: [valid: yaml")
	_, err := loadManualMappings(path)
	assert.Error(t, err)
}

func TestEnvOrFallsBackWhenUnset(t *testing.T) {
	t.Setenv("BLOCKTREE_TEST_UNSET_VAR", "")
	assert.Equal(t, "fallback", envOr("BLOCKTREE_TEST_UNSET_VAR_DOES_NOT_EXIST", "fallback"))

	t.Setenv("BLOCKTREE_TEST_SET_VAR", "custom")
	assert.Equal(t, "custom", envOr("BLOCKTREE_TEST_SET_VAR", "fallback"))
}

func TestLoadHonorsWorkerPoolSizeOverride(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "3")
	t.Setenv("MANUAL_MAPPING_PATH", "")
	t.Setenv("POSTGRES_DSN", "postgres://test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workers)
}

func TestLoadRejectsInvalidWorkerPoolSize(t *testing.T) {
	t.Setenv("WORKER_POOL_SIZE", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}
