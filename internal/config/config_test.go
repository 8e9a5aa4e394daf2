package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
	assert.Equal(t, int64(10000), cfg.MaxConnections)
	assert.Equal(t, 20, cfg.MaxConnectionsPerIP)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("PING_INTERVAL", "5s")
	t.Setenv("WRITE_TIMEOUT", "250ms")
	t.Setenv("MAX_CONNECTIONS", "42")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.WriteTimeout)
	assert.Equal(t, int64(42), cfg.MaxConnections)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"bad ping interval", "PING_INTERVAL", "soon"},
		{"negative ping interval", "PING_INTERVAL", "-10s"},
		{"bad write timeout", "WRITE_TIMEOUT", "fast"},
		{"bad max connections", "MAX_CONNECTIONS", "many"},
		{"zero max connections", "MAX_CONNECTIONS", "0"},
		{"bad per-ip limit", "MAX_CONNECTIONS_PER_IP", "lots"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
