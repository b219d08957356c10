package flashnet

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/amm"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

func validateParams(p models.SwapParams) error {
	switch {
	case p.PoolID == "":
		return fmt.Errorf("%w: poolId is required", ErrInvalidParams)
	case p.AssetInAddress == "" || p.AssetOutAddress == "":
		return fmt.Errorf("%w: asset addresses are required", ErrInvalidParams)
	case p.AssetInAddress == p.AssetOutAddress:
		return fmt.Errorf("%w: assetIn and assetOut must differ", ErrInvalidParams)
	case p.AmountIn == nil || p.AmountIn.Sign() <= 0:
		return fmt.Errorf("%w: amountIn must be > 0", ErrInvalidParams)
	case p.SlippageBps >= amm.BpsDenominator:
		return fmt.Errorf("%w: slippageBps must be < %d", ErrInvalidParams, amm.BpsDenominator)
	}
	return nil
}

// SimulateSwap quotes params against the remote simulator. When the remote
// call fails for any reason the quote is priced locally from the pool's
// last-known reserves; both paths return the same shape.
func (c *Client) SimulateSwap(ctx context.Context, params models.SwapParams) (*models.SwapQuote, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	c.stats.simulations.Add(1)

	if !c.mock {
		q, err := c.remoteSimulate(ctx, params)
		if err == nil {
			return q, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.stats.fallbacks.Add(1)
		c.logger.WithFields(logrus.Fields{
			"pool":   shortID(params.PoolID),
			"amount": params.AmountIn.String(),
			"error":  err,
		}).Warn("remote simulate failed, pricing locally")
	}

	pool, err := c.poolForQuote(ctx, params.PoolID)
	if err != nil {
		return nil, err
	}
	return LocalQuote(pool, params)
}

func (c *Client) remoteSimulate(ctx context.Context, params models.SwapParams) (*models.SwapQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, c.simulateTimeout)
	defer cancel()

	var out apiSimulateResponse
	err := c.fetchAPI(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/v1/swaps/simulate",
		Body: apiSimulateRequest{
			PoolID:          params.PoolID,
			AssetInAddress:  params.AssetInAddress,
			AssetOutAddress: params.AssetOutAddress,
			AmountIn:        params.AmountIn.String(),
		},
	}, &out)
	if err != nil {
		return nil, err
	}

	amountOut, err := parseBaseUnits("amountOut", out.AmountOut)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if out.AmountOut == "" {
		return nil, fmt.Errorf("%w: simulate returned no amountOut", ErrBadResponse)
	}
	fee, err := parseBaseUnits("feeAmount", out.FeeAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	impactPct, _ := out.PriceImpactPct.Float64()
	q := &models.SwapQuote{
		ExpectedAmountOut: amountOut,
		MinimumAmountOut:  amm.ApplySlippage(amountOut, params.SlippageBps),
		PriceImpactPct:    impactPct,
		PriceImpactBps:    int64(math.Round(impactPct * 100)),
		FeeAmount:         fee,
		ExecutionPrice:    out.ExecutionPrice.Decimal,
		Route:             []string{params.AssetInAddress, params.AssetOutAddress},
		Source:            models.QuoteSourceRemote,
	}

	// Fill what the simulator left out from the known pool, if any.
	if pool, ok := c.known.get(params.PoolID); ok {
		if out.FeeAmount == "" {
			q.FeeAmount = amm.FeeAmount(params.AmountIn, pool.TotalFeeBps())
		}
		if !out.ExecutionPrice.Valid {
			in, _ := pool.Token(params.AssetInAddress)
			outTok, _ := pool.Token(params.AssetOutAddress)
			q.ExecutionPrice = amm.ExecutionPrice(params.AmountIn, amountOut, in.Decimals, outTok.Decimals)
		}
	}
	return q, nil
}

func (c *Client) poolForQuote(ctx context.Context, poolID string) (*models.Pool, error) {
	if p, ok := c.known.get(poolID); ok {
		return &p, nil
	}
	if c.mock {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, poolID)
	}
	p, err := c.GetPool(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoReserves, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: pool %s not found", ErrNoReserves, shortID(poolID))
	}
	return p, nil
}

// LocalQuote prices params against pool with the constant-product formula.
func LocalQuote(pool *models.Pool, params models.SwapParams) (*models.SwapQuote, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}
	if !pool.HasAsset(params.AssetInAddress) || !pool.HasAsset(params.AssetOutAddress) {
		return nil, ErrAssetNotInPool
	}

	reserveIn, reserveOut := pool.Reserves.AssetA, pool.Reserves.AssetB
	if params.AssetInAddress == pool.AssetBAddress {
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	q, err := amm.ComputeQuote(params.AmountIn, reserveIn, reserveOut, pool.TotalFeeBps(), params.SlippageBps)
	if errors.Is(err, amm.ErrEmptyReserves) {
		return nil, fmt.Errorf("%w: %w", ErrNoReserves, err)
	}
	if err != nil {
		return nil, err
	}

	in, _ := pool.Token(params.AssetInAddress)
	out, _ := pool.Token(params.AssetOutAddress)
	return &models.SwapQuote{
		ExpectedAmountOut: q.AmountOut,
		MinimumAmountOut:  q.MinAmountOut,
		PriceImpactBps:    q.PriceImpactBps,
		PriceImpactPct:    q.PriceImpact * 100,
		FeeAmount:         q.FeeAmount,
		ExecutionPrice:    amm.ExecutionPrice(params.AmountIn, q.AmountOut, in.Decimals, out.Decimals),
		Route:             []string{params.AssetInAddress, params.AssetOutAddress},
		Source:            models.QuoteSourceLocal,
	}, nil
}

// ExecuteSwap quotes params and asks the wallet to sign and submit the swap
// with the quoted minimum output. Failures are reported in the result.
func (c *Client) ExecuteSwap(ctx context.Context, params models.SwapParams) *models.SwapResult {
	if params.UserPublicKey == "" {
		return failed("userPublicKey is required")
	}
	if c.wallet == nil {
		return failed(wallet.ErrWalletNotFound.Error())
	}

	quote, err := c.SimulateSwap(ctx, params)
	if err != nil {
		return failed(err.Error())
	}
	return c.ExecuteQuoted(ctx, params, quote)
}

// ExecuteQuoted submits params with an already computed quote.
func (c *Client) ExecuteQuoted(ctx context.Context, params models.SwapParams, quote *models.SwapQuote) *models.SwapResult {
	if params.UserPublicKey == "" {
		return failed("userPublicKey is required")
	}
	if c.wallet == nil {
		return failed(wallet.ErrWalletNotFound.Error())
	}
	if quote == nil || quote.MinimumAmountOut == nil {
		return failed("quote is required")
	}

	log := c.logger.WithFields(logrus.Fields{
		"pool":     shortID(params.PoolID),
		"amountIn": params.AmountIn.String(),
		"minOut":   quote.MinimumAmountOut.String(),
	})
	log.Info("submitting swap to wallet")

	res, err := c.wallet.ExecuteSwap(ctx, wallet.ExecuteSwapRequest{
		PoolID:                    params.PoolID,
		AssetInAddress:            params.AssetInAddress,
		AssetOutAddress:           params.AssetOutAddress,
		AmountIn:                  params.AmountIn.String(),
		MinAmountOut:              quote.MinimumAmountOut.String(),
		MaxSlippageBps:            params.SlippageBps,
		UserPublicKey:             params.UserPublicKey,
		TotalIntegratorFeeRateBps: 0,
		IntegratorPublicKey:       params.UserPublicKey,
	})
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Swap failed"
		}
		log.WithError(err).Warn("swap not executed")
		return failed(msg)
	}

	out := quote.ExpectedAmountOut
	if res.AmountOut != "" {
		if v, perr := parseBaseUnits("amountOut", res.AmountOut); perr == nil {
			out = v
		}
	}
	log.WithField("tx", res.TxID).Info("swap executed")
	return &models.SwapResult{
		Success:            true,
		TxID:               res.TxID,
		AmountOut:          out,
		OutboundTransferID: res.OutboundTransferID,
	}
}

func failed(msg string) *models.SwapResult {
	return &models.SwapResult{Success: false, Error: msg}
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
