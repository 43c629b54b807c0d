package httpcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaycore/httpcore/internal/config"
)

func TestNew_BuildsClientFromDefaultConfig(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, client)
	defer client.Close()

	assert.NotNil(t, client.Logger())
}

func TestNew_AppliesProvidedConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Pool.NumPools = 4
	cfg.Pool.Maxsize = 2

	client, err := New(cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, 0, len(client.Stats()))
}

func TestClient_NewRequestAppliesConfiguredDefaults(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	defer client.Close()

	url, err := ParseURL("https://example.com/path")
	require.NoError(t, err)

	req := client.NewRequest("get", url)
	assert.Equal(t, "GET", req.Method)
	assert.True(t, req.DecodeContent)
	assert.True(t, req.Redirect)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestClient_DoAfterCloseReturnsError(t *testing.T) {
	client, err := New(nil)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	url, err := ParseURL("https://example.com/")
	require.NoError(t, err)
	req := client.NewRequest("GET", url)

	_, err = client.Do(context.Background(), req)
	require.Error(t, err)
}
