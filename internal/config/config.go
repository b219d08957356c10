package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
)

type Config struct {
	// API server settings
	APIAddr        string
	APIKey         string
	DevMode        bool
	ProxyRateLimit float64
	ProxyRateBurst int

	// Flashnet settings
	FlashnetAPIBase  string
	FlashnetProxyURL string
	UseMockData      bool

	// HTTP client settings
	HTTPTimeout     time.Duration
	SimulateTimeout time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration

	// Auth session settings
	AuthSessionLifetime time.Duration
	AuthRefreshBuffer   time.Duration

	// Market data settings
	PoolCacheTTL        time.Duration
	PoolRefreshInterval time.Duration
	TokenListRefresh    time.Duration

	// Swap session settings
	QuoteDebounce      time.Duration
	DefaultSlippageBps int
	MaxSlippageBps     int
	MaxPriceImpactBps  int

	// Redis settings; empty means in-memory cache and no pub/sub
	RedisAddr string

	// ClickHouse settings; empty address disables the swap journal table
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Wallet settings for the CLI
	WalletBridgeURL  string
	WalletPrivateKey string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		// API
		APIAddr:        getEnv("API_ADDR", ":8090"),
		APIKey:         getEnv("API_KEY", ""),
		DevMode:        getBoolEnv("DEV_MODE", false),
		ProxyRateLimit: getFloatEnv("PROXY_RATE_LIMIT", 10),
		ProxyRateBurst: getIntEnv("PROXY_RATE_BURST", 20),

		// Flashnet
		FlashnetAPIBase:  getEnv("FLASHNET_API_BASE", constants.FlashnetAPIBase),
		FlashnetProxyURL: getEnv("FLASHNET_PROXY_URL", ""),
		UseMockData:      getBoolEnv("USE_MOCK_DATA", false),

		// HTTP
		HTTPTimeout:     getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
		SimulateTimeout: getDurationEnv("SIMULATE_TIMEOUT", 8*time.Second),
		MaxRetries:      getIntEnv("MAX_RETRIES", 3),
		RetryBackoff:    getDurationEnv("RETRY_BACKOFF", 500*time.Millisecond),

		// Auth
		AuthSessionLifetime: getDurationEnv("AUTH_SESSION_LIFETIME", constants.SessionLifetime),
		AuthRefreshBuffer:   getDurationEnv("AUTH_REFRESH_BUFFER", constants.RefreshBuffer),

		// Market
		PoolCacheTTL:        getDurationEnv("POOL_CACHE_TTL", constants.PoolCacheTTL),
		PoolRefreshInterval: getDurationEnv("POOL_REFRESH_INTERVAL", constants.PoolRefreshInterval),
		TokenListRefresh:    getDurationEnv("TOKEN_LIST_REFRESH", constants.TokenListRefresh),

		// Swap
		QuoteDebounce:      getDurationEnv("QUOTE_DEBOUNCE", 300*time.Millisecond),
		DefaultSlippageBps: getIntEnv("DEFAULT_SLIPPAGE_BPS", constants.DefaultSlippageBps),
		MaxSlippageBps:     getIntEnv("MAX_SLIPPAGE_BPS", constants.MaxSlippageBps),
		MaxPriceImpactBps:  getIntEnv("MAX_PRICE_IMPACT_BPS", constants.MaxPriceImpactBps),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", ""),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "spark"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Wallet
		WalletBridgeURL:  getEnv("WALLET_BRIDGE_URL", ""),
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.HTTPTimeout <= 0 {
		add("HTTP_TIMEOUT must be positive")
	}
	if c.SimulateTimeout <= 0 {
		add("SIMULATE_TIMEOUT must be positive")
	}
	if c.MaxRetries < 0 {
		add("MAX_RETRIES must not be negative")
	}
	if c.AuthRefreshBuffer >= c.AuthSessionLifetime {
		add("AUTH_REFRESH_BUFFER (%s) must be shorter than AUTH_SESSION_LIFETIME (%s)", c.AuthRefreshBuffer, c.AuthSessionLifetime)
	}
	if c.PoolCacheTTL <= 0 || c.PoolRefreshInterval <= 0 {
		add("POOL_CACHE_TTL and POOL_REFRESH_INTERVAL must be positive")
	}
	if c.QuoteDebounce < 0 {
		add("QUOTE_DEBOUNCE must not be negative")
	}
	if c.MaxSlippageBps <= 0 || c.MaxSlippageBps >= constants.BpsDenominator {
		add("MAX_SLIPPAGE_BPS must be between 1 and %d", constants.BpsDenominator-1)
	}
	if c.DefaultSlippageBps < 0 || c.DefaultSlippageBps > c.MaxSlippageBps {
		add("DEFAULT_SLIPPAGE_BPS must be between 0 and MAX_SLIPPAGE_BPS")
	}
	if c.MaxPriceImpactBps < 0 {
		add("MAX_PRICE_IMPACT_BPS must not be negative")
	}
	if c.ProxyRateLimit <= 0 || c.ProxyRateBurst <= 0 {
		add("PROXY_RATE_LIMIT and PROXY_RATE_BURST must be positive")
	}
	if p := strings.TrimSpace(c.FlashnetProxyURL); p != "" && !strings.HasPrefix(p, "http") {
		add("FLASHNET_PROXY_URL must be an http(s) URL")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		add("LOG_FORMAT must be text or json")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
