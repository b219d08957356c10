package models

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Token identifies a fungible asset by its public key.
type Token struct {
	PublicKey string `json:"publicKey"`
	Name      string `json:"name"`
	Ticker    string `json:"ticker"`
	Decimals  uint8  `json:"decimals"`
	LogoURL   string `json:"logoUrl,omitempty"`
}

type CurveType string

const (
	CurveConstantProduct CurveType = "CONSTANT_PRODUCT"
	CurveSingleSided     CurveType = "SINGLE_SIDED"
)

// Reserves are integer base-unit balances of each pool asset.
type Reserves struct {
	AssetA *big.Int `json:"assetA"`
	AssetB *big.Int `json:"assetB"`
}

// Pool is a read-only snapshot of a Flashnet trading pair.
type Pool struct {
	PoolID        string    `json:"poolId"`
	LPPublicKey   string    `json:"lpPublicKey"`
	HostName      string    `json:"hostName,omitempty"`
	AssetAAddress string    `json:"assetAAddress"`
	AssetBAddress string    `json:"assetBAddress"`
	AssetA        Token     `json:"assetA"`
	AssetB        Token     `json:"assetB"`
	Reserves      Reserves  `json:"reserves"`
	LPFeeBps      uint32    `json:"lpFeeRateBps"`
	HostFeeBps    uint32    `json:"hostFeeRateBps"`
	CurveType     CurveType `json:"curveType"`

	TVL            decimal.Decimal `json:"tvl"`
	Volume24h      decimal.Decimal `json:"volume24h"`
	PriceChange24h decimal.Decimal `json:"priceChange24h"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TotalFeeBps is the LP fee plus the host fee.
func (p *Pool) TotalFeeBps() uint32 {
	return p.LPFeeBps + p.HostFeeBps
}

// HasAsset reports whether address is one of the pool's two assets.
func (p *Pool) HasAsset(address string) bool {
	return address == p.AssetAAddress || address == p.AssetBAddress
}

// Token returns the pool-side metadata for an asset address.
func (p *Pool) Token(address string) (Token, bool) {
	switch address {
	case p.AssetAAddress:
		return p.AssetA, true
	case p.AssetBAddress:
		return p.AssetB, true
	}
	return Token{}, false
}

type PoolSort string

const (
	SortTVLDesc       PoolSort = "TVL_DESC"
	SortTVLAsc        PoolSort = "TVL_ASC"
	SortVolumeDesc    PoolSort = "VOLUME24H_DESC"
	SortVolumeAsc     PoolSort = "VOLUME24H_ASC"
	SortCreatedAtDesc PoolSort = "CREATED_AT_DESC"
	SortCreatedAtAsc  PoolSort = "CREATED_AT_ASC"
)

// ListPoolsQuery filters and paginates a pool listing. Zero values are omitted.
type ListPoolsQuery struct {
	Limit         int      `json:"limit,omitempty"`
	Offset        int      `json:"offset,omitempty"`
	Sort          PoolSort `json:"sort,omitempty"`
	MinTVL        string   `json:"minTvl,omitempty"`
	MinVolume24h  string   `json:"minVolume24h,omitempty"`
	AssetAAddress string   `json:"assetAAddress,omitempty"`
	AssetBAddress string   `json:"assetBAddress,omitempty"`
}

type QuoteSource string

const (
	QuoteSourceRemote QuoteSource = "remote"
	QuoteSourceLocal  QuoteSource = "local"
)

// SwapQuote is a point-in-time swap estimate. MinimumAmountOut <= ExpectedAmountOut.
type SwapQuote struct {
	ExpectedAmountOut *big.Int        `json:"expectedAmountOut"`
	MinimumAmountOut  *big.Int        `json:"minimumAmountOut"`
	PriceImpactBps    int64           `json:"priceImpactBps"`
	PriceImpactPct    float64         `json:"priceImpactPct"`
	FeeAmount         *big.Int        `json:"feeAmount"`
	ExecutionPrice    decimal.Decimal `json:"executionPrice"`
	Route             []string        `json:"route"`
	Source            QuoteSource     `json:"source"`
}

// SwapParams is the request envelope for a quote or an execution.
type SwapParams struct {
	PoolID          string   `json:"poolId"`
	AssetInAddress  string   `json:"assetInAddress"`
	AssetOutAddress string   `json:"assetOutAddress"`
	AmountIn        *big.Int `json:"amountIn"`
	SlippageBps     uint32   `json:"slippageBps"`
	UserPublicKey   string   `json:"userPublicKey,omitempty"`
}

// SwapResult is the terminal outcome of one execution attempt.
type SwapResult struct {
	Success            bool     `json:"success"`
	TxID               string   `json:"txId,omitempty"`
	AmountOut          *big.Int `json:"amountOut,omitempty"`
	OutboundTransferID string   `json:"outboundTransferId,omitempty"`
	Error              string   `json:"error,omitempty"`
}

// SwapHistoryItem is one executed swap reported by the AMM.
type SwapHistoryItem struct {
	ID               string          `json:"id"`
	PoolID           string          `json:"poolId"`
	SwapperPublicKey string          `json:"swapperPublicKey"`
	AmountIn         *big.Int        `json:"amountIn"`
	AmountOut        *big.Int        `json:"amountOut"`
	AssetInAddress   string          `json:"assetInAddress"`
	AssetOutAddress  string          `json:"assetOutAddress"`
	FeePaid          *big.Int        `json:"feePaid"`
	Price            decimal.Decimal `json:"price"`
	CreatedAt        time.Time       `json:"createdAt"`
}

type SwapHistory struct {
	Swaps      []SwapHistoryItem `json:"swaps"`
	TotalCount int               `json:"totalCount"`
}

// SwapHistoryQuery selects pool-scoped history when PoolID is set, global history otherwise.
type SwapHistoryQuery struct {
	PoolID       string `json:"poolId,omitempty"`
	AssetAddress string `json:"assetAddress,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// TopMover is a pool ranked by its 24h price change.
type TopMover struct {
	Pool   Pool            `json:"pool"`
	Change decimal.Decimal `json:"change"`
}

type TopMovers struct {
	Gainers []TopMover `json:"gainers"`
	Losers  []TopMover `json:"losers"`
}

// SwapEvent is the journal record of an execution attempt.
type SwapEvent struct {
	ID                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	PoolID             string    `json:"pool_id"`
	UserPublicKey      string    `json:"user_public_key"`
	AssetIn            string    `json:"asset_in"`
	AssetOut           string    `json:"asset_out"`
	AmountIn           string    `json:"amount_in"`
	ExpectedAmountOut  string    `json:"expected_amount_out"`
	MinimumAmountOut   string    `json:"minimum_amount_out"`
	SlippageBps        uint32    `json:"slippage_bps"`
	PriceImpactBps     int64     `json:"price_impact_bps"`
	QuoteSource        string    `json:"quote_source"`
	Success            bool      `json:"success"`
	TxID               string    `json:"tx_id"`
	OutboundTransferID string    `json:"outbound_transfer_id"`
	Error              string    `json:"error"`
}
