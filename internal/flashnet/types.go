package flashnet

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// wireDecimal accepts a JSON number, a numeric string, "" or null.
type wireDecimal struct {
	decimal.Decimal
	Valid bool
}

func (d *wireDecimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" || string(b) == `""` {
		*d = wireDecimal{}
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid decimal %s: %w", b, err)
	}
	*d = wireDecimal{Decimal: v, Valid: true}
	return nil
}

type apiPool struct {
	LPPublicKey           string      `json:"lpPublicKey"`
	HostName              string      `json:"hostName"`
	HostFeeBps            wireDecimal `json:"hostFeeBps"`
	LPFeeBps              wireDecimal `json:"lpFeeBps"`
	AssetAAddress         string      `json:"assetAAddress"`
	AssetBAddress         string      `json:"assetBAddress"`
	AssetAReserve         string      `json:"assetAReserve"`
	AssetBReserve         string      `json:"assetBReserve"`
	TVLAssetB             wireDecimal `json:"tvlAssetB"`
	Volume24hAssetB       wireDecimal `json:"volume24hAssetB"`
	PriceChangePercent24h wireDecimal `json:"priceChangePercent24h"`
	CurrentPriceAInB      wireDecimal `json:"currentPriceAInB"`
	CurveType             string      `json:"curveType"`
	CreatedAt             string      `json:"createdAt"`
	UpdatedAt             string      `json:"updatedAt"`
}

type apiPoolList struct {
	Pools      []apiPool `json:"pools"`
	TotalCount int       `json:"totalCount"`
}

type apiSimulateRequest struct {
	PoolID          string `json:"poolId"`
	AssetInAddress  string `json:"assetInAddress"`
	AssetOutAddress string `json:"assetOutAddress"`
	AmountIn        string `json:"amountIn"`
}

type apiSimulateResponse struct {
	AmountOut      string      `json:"amountOut"`
	ExecutionPrice wireDecimal `json:"executionPrice"`
	PriceImpactPct wireDecimal `json:"priceImpactPct"`
	FeeAmount      string      `json:"feeAmount"`
}

type apiSwap struct {
	ID               string      `json:"id"`
	PoolID           string      `json:"poolId"`
	PoolLPPublicKey  string      `json:"poolLpPublicKey"`
	SwapperPublicKey string      `json:"swapperPublicKey"`
	AmountIn         string      `json:"amountIn"`
	AmountOut        string      `json:"amountOut"`
	AssetInAddress   string      `json:"assetInAddress"`
	AssetOutAddress  string      `json:"assetOutAddress"`
	FeePaid          string      `json:"feePaid"`
	Price            wireDecimal `json:"price"`
	CreatedAt        string      `json:"createdAt"`
}

type apiSwapList struct {
	Swaps      []apiSwap `json:"swaps"`
	TotalCount int       `json:"totalCount"`
}

// parseBaseUnits parses a decimal-string integer. Empty means zero.
func parseBaseUnits(field, s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%s: not an integer: %q", field, s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%s: negative value %q", field, s)
	}
	return v, nil
}

func parseBps(field string, d wireDecimal) (uint32, error) {
	if !d.Valid {
		return 0, nil
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(decimal.NewFromInt(1<<31)) {
		return 0, fmt.Errorf("%s: invalid bps %s", field, d.String())
	}
	return uint32(d.IntPart()), nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
