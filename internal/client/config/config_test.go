package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8080", c.ServerEndpointAddr)
	assert.Equal(t, "127.0.0.1:50051", c.HealthEndpointAddr)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 60*time.Second, c.SyncInterval)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, "chats.db", c.DatabaseDSN)
	assert.Equal(t, "text", c.LogFormat)
	assert.False(t, c.ReapTombstones)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"client"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeConfig(t, `{"server_endpoint_addr":"http://json:8080","user_id":"from-json","sync_interval":"5m"}`)
	withArgs(t, "-c", path, "-u", "from-flag")

	cfg := LoadConfig()

	assert.Equal(t, "http://json:8080", cfg.ServerEndpointAddr)
	assert.Equal(t, "from-flag", cfg.UserID)
	assert.Equal(t, 5*time.Minute, cfg.SyncInterval)
}
