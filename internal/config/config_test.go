package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Cache.Driver)
	assert.Equal(t, 15*time.Minute, c.JWT.AccessTTL)
	assert.Equal(t, 30*24*time.Hour, c.Auth.RefreshTTL)
	assert.Equal(t, 5, c.Auth.SessionCeiling)
	assert.Equal(t, 10*time.Minute, c.Auth.StateTTL)
	assert.Equal(t, 60*time.Second, c.Auth.CodeTTL)
	assert.True(t, c.RevokeChainOnReplay())
	assert.Equal(t, "http://localhost:8080", c.Server.BaseURL)
}

func TestLoadYAML(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9090"
  base_url: "https://id.example.com/"
auth:
  session_ceiling: 3
  revoke_chain_on_replay: false
  state_ttl: 5m
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, 3, c.Auth.SessionCeiling)
	assert.False(t, c.RevokeChainOnReplay())
	assert.Equal(t, 5*time.Minute, c.Auth.StateTTL)
	assert.Equal(t, "https://id.example.com/", c.Server.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9090"
cache:
  driver: memory
`)
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("AUTH_REVOKE_CHAIN_ON_REPLAY", "false")

	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, ":7070", c.Server.Addr)
	assert.Equal(t, "redis", c.Cache.Driver)
	assert.Equal(t, "redis.internal:6379", c.Cache.Redis.Addr)
	assert.False(t, c.RevokeChainOnReplay())
}

func TestLoadRejectsUnknownCacheDriver(t *testing.T) {
	p := writeYAML(t, `
cache:
  driver: memcached
`)
	_, err := Load(p)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
