package constants

import "time"

// Flashnet AMM API
const (
	FlashnetAPIBase = "https://api.amm.flashnet.xyz"
	APIPathPrefix   = "/v1/"
)

// BTCAssetPubkey is the asset identifier Flashnet uses for native BTC.
const BTCAssetPubkey = "020202020202020202020202020202020202020202020202020202020202020202"

// BTCAlias resolves to the same token as BTCAssetPubkey.
const BTCAlias = "btc"

// Basis points
const (
	BpsDenominator     = 10000
	DefaultSlippageBps = 100
	MaxSlippageBps     = 1000
	MaxPriceImpactBps  = 1500
)

// Auth session timing
const (
	SessionLifetime = time.Hour
	RefreshBuffer   = 5 * time.Minute
)

// Market data freshness
const (
	PoolCacheTTL        = 30 * time.Second
	PoolRefreshInterval = 60 * time.Second
	TokenListRefresh    = 5 * time.Minute
	TopMoversPoolLimit  = 50
	DefaultPoolPageSize = 50
)

// Redis keys
const (
	RedisKeyPoolsPrefix = "spark:pools:"
	RedisKeySwapsPrefix = "spark:swaps:"
)

// Redis Pub/Sub channels
const (
	PubSubChannelSwaps       = "spark:swaps:all"
	PubSubChannelPoolPrefix  = "spark:swaps:pool:"
	PubSubChannelSwapsFailed = "spark:swaps:failed"
)

// Wallet
const (
	WalletConnectMessage = "Connect to BitPlex DEX"
)

// TokenListSources are public Spark token lists merged into the registry.
var TokenListSources = []string{
	"https://sparksat.app/sparksat.json",
	"https://bitbit.bot/bitbit.json",
	"https://sparkmoneybot.com/sparkmoneybot.json",
	"https://flashnet.xyz/api/tokenlist",
}
