package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aman-zulfiqar/spark-swap/internal/amount"
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// Quote prices a swap against one pool.
// Required: poolId, amount (display units of the input token).
// Optional: assetIn (defaults to the pool's asset A; "btc" is accepted),
// slippageBps (0-1000, default 100).
func (h *Handlers) Quote(c echo.Context) error {
	poolID := strings.TrimSpace(c.QueryParam("poolId"))
	if poolID == "" {
		return h.err(c, http.StatusBadRequest, "missing poolId", map[string]any{"poolId": "required"})
	}

	amountStr := strings.TrimSpace(c.QueryParam("amount"))
	if amountStr == "" {
		return h.err(c, http.StatusBadRequest, "missing amount", map[string]any{"amount": "required"})
	}

	slippage := uint64(constants.DefaultSlippageBps)
	if s := c.QueryParam("slippageBps"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil || n > constants.MaxSlippageBps {
			return h.err(c, http.StatusBadRequest, "invalid slippageBps", map[string]any{"slippageBps": "min 0 max 1000"})
		}
		slippage = n
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	pool, err := h.Market.Pool(ctx, poolID)
	if err != nil {
		return h.upstreamErr(c, "failed to load pool", err)
	}
	if pool == nil {
		return h.err(c, http.StatusNotFound, "pool not found", map[string]any{"poolId": poolID})
	}

	assetIn := strings.TrimSpace(c.QueryParam("assetIn"))
	switch {
	case assetIn == "":
		assetIn = pool.AssetAAddress
	case strings.EqualFold(assetIn, constants.BTCAlias):
		assetIn = constants.BTCAssetPubkey
	}
	if !pool.HasAsset(assetIn) {
		return h.err(c, http.StatusBadRequest, "asset not in pool", map[string]any{"assetIn": assetIn, "poolId": poolID})
	}
	assetOut := pool.AssetBAddress
	if assetIn == pool.AssetBAddress {
		assetOut = pool.AssetAAddress
	}

	tokenIn := h.token(pool, assetIn)
	tokenOut := h.token(pool, assetOut)

	amountIn, err := amount.Parse(amountStr, tokenIn.Decimals)
	if err != nil || amountIn.Sign() <= 0 {
		return h.err(c, http.StatusBadRequest, "invalid amount", map[string]any{"amount": "must be a positive decimal"})
	}

	quote, err := h.Quoter.SimulateSwap(ctx, models.SwapParams{
		PoolID:          pool.PoolID,
		AssetInAddress:  assetIn,
		AssetOutAddress: assetOut,
		AmountIn:        amountIn,
		SlippageBps:     uint32(slippage),
	})
	if err != nil {
		return h.upstreamErr(c, "failed to quote swap", err)
	}

	return c.JSON(http.StatusOK, QuoteResponse{
		Quote:             quote,
		AmountIn:          amount.Format(amountIn, tokenIn.Decimals),
		ExpectedAmountOut: amount.Format(quote.ExpectedAmountOut, tokenOut.Decimals),
		MinimumAmountOut:  amount.Format(quote.MinimumAmountOut, tokenOut.Decimals),
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
	})
}

// token prefers the pool's own metadata and falls back to the registry.
func (h *Handlers) token(pool *models.Pool, address string) models.Token {
	if t, ok := pool.Token(address); ok && t.Ticker != "" {
		return t
	}
	return h.Tokens.Lookup(address)
}
