package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8090", cfg.APIAddr)
	assert.Equal(t, "https://api.amm.flashnet.xyz", cfg.FlashnetAPIBase)
	assert.Equal(t, 8*time.Second, cfg.SimulateTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Hour, cfg.AuthSessionLifetime)
	assert.Equal(t, 100, cfg.DefaultSlippageBps)
	assert.Equal(t, 1500, cfg.MaxPriceImpactBps)
	assert.Equal(t, "spark", cfg.ClickHouseDatabase)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("USE_MOCK_DATA", "true")
	t.Setenv("QUOTE_DEBOUNCE", "50ms")
	t.Setenv("PROXY_RATE_LIMIT", "2.5")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("DEV_MODE", "maybe")

	cfg := Load()
	assert.True(t, cfg.UseMockData)
	assert.Equal(t, 50*time.Millisecond, cfg.QuoteDebounce)
	assert.Equal(t, 2.5, cfg.ProxyRateLimit)
	assert.Equal(t, 3, cfg.MaxRetries, "unparseable values fall back to the default")
	assert.False(t, cfg.DevMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"refresh buffer too long", func(c *Config) { c.AuthRefreshBuffer = 2 * time.Hour }, "AUTH_REFRESH_BUFFER"},
		{"slippage above max", func(c *Config) { c.DefaultSlippageBps = 2000 }, "DEFAULT_SLIPPAGE_BPS"},
		{"max slippage 100%", func(c *Config) { c.MaxSlippageBps = 10000 }, "MAX_SLIPPAGE_BPS"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"proxy url", func(c *Config) { c.FlashnetProxyURL = "ftp://x" }, "FLASHNET_PROXY_URL"},
		{"zero timeout", func(c *Config) { c.SimulateTimeout = 0 }, "SIMULATE_TIMEOUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
