package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefaultConfig_MatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 10, cfg.Pool.NumPools)
	assert.Equal(t, 10, cfg.Pool.Maxsize)
	assert.False(t, cfg.Pool.Block)

	assert.Equal(t, 10*time.Second, cfg.Timeout.Connect)
	assert.Equal(t, 30*time.Second, cfg.Timeout.Read)

	assert.Equal(t, []string{"GET", "HEAD", "PUT", "DELETE", "OPTIONS", "TRACE"}, cfg.Retry.AllowedMethods)
	assert.Equal(t, []int{413, 429, 503}, cfg.Retry.StatusForcelist)
	assert.True(t, cfg.Retry.RespectRetryAfterHeader)

	assert.True(t, cfg.Request.DecodeContent)
	assert.True(t, cfg.Request.Redirect)
}

func TestLoad_WithoutFileReturnsDefaults(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Pool, cfg.Pool)
}

func TestLoad_ReadsYamlOverrides(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	yaml := []byte("pool:\n  num_pools: 25\n  maxsize: 4\nproxy:\n  url: http://proxy.local:8080\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Pool.NumPools)
	assert.Equal(t, 4, cfg.Pool.Maxsize)
	assert.Equal(t, "http://proxy.local:8080", cfg.Proxy.URL)
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(cwd) }()

	t.Setenv("HTTPCORE_POOL_NUM_POOLS", "7")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pool.NumPools)
}
