package amm

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSwapOutput_ConstantProduct(t *testing.T) {
	amountIn := big.NewInt(10_000)
	reserveIn := big.NewInt(1_000_000)
	reserveOut := big.NewInt(2_000_000)

	out, err := CalculateSwapOutput(amountIn, reserveIn, reserveOut, 30)
	require.NoError(t, err)

	// 10000 * 9970 / 10000 = 9970; 9970 * 2000000 / 1009970 = 19743
	assert.Equal(t, int64(19743), out.Int64())

	naive := new(big.Int).Quo(new(big.Int).Mul(amountIn, reserveOut), reserveIn)
	assert.Equal(t, -1, out.Cmp(naive), "fee and curve must reduce output")
	assert.Equal(t, 1, out.Sign())
}

func TestCalculateSwapOutput_Errors(t *testing.T) {
	one := big.NewInt(1)

	_, err := CalculateSwapOutput(big.NewInt(0), one, one, 30)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = CalculateSwapOutput(big.NewInt(-5), one, one, 30)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = CalculateSwapOutput(one, big.NewInt(0), one, 30)
	assert.ErrorIs(t, err, ErrEmptyReserves)

	_, err = CalculateSwapOutput(one, one, nil, 30)
	assert.ErrorIs(t, err, ErrEmptyReserves)

	_, err = CalculateSwapOutput(one, one, one, 10000)
	assert.ErrorIs(t, err, ErrInvalidFee)
}

func TestCalculateSwapOutput_LargeReserves(t *testing.T) {
	// 21M BTC in sats against a token with 2^100 supply.
	reserveIn, _ := new(big.Int).SetString("2100000000000000", 10)
	reserveOut := new(big.Int).Lsh(big.NewInt(1), 100)
	amountIn, _ := new(big.Int).SetString("100000000000000", 10)

	out, err := CalculateSwapOutput(amountIn, reserveIn, reserveOut, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sign())
	assert.Equal(t, -1, out.Cmp(reserveOut))
}

func TestApplySlippage(t *testing.T) {
	out := big.NewInt(19743)

	assert.Equal(t, int64(19545), ApplySlippage(out, 100).Int64())
	assert.Equal(t, int64(19743), ApplySlippage(out, 0).Int64())
	assert.Equal(t, int64(0), ApplySlippage(out, 10000).Int64())
	assert.Equal(t, int64(0), ApplySlippage(out, 20000).Int64())
	assert.Equal(t, int64(0), ApplySlippage(nil, 100).Int64())
}

func TestApplySlippage_Monotonic(t *testing.T) {
	out := big.NewInt(98_505_550_044)
	prev := ApplySlippage(out, 0)
	for bps := uint32(1); bps <= 10000; bps += 37 {
		cur := ApplySlippage(out, bps)
		assert.LessOrEqual(t, cur.Cmp(prev), 0, "bps=%d", bps)
		assert.LessOrEqual(t, cur.Cmp(out), 0)
		prev = cur
	}
}

func TestFeeAmount(t *testing.T) {
	assert.Equal(t, int64(30), FeeAmount(big.NewInt(10_000), 30).Int64())
	assert.Equal(t, int64(13_000), FeeAmount(big.NewInt(1_000_000), 130).Int64())
	assert.Equal(t, int64(0), FeeAmount(big.NewInt(10), 30).Int64())
}

func TestComputeQuote_BTCPool(t *testing.T) {
	reserveA := big.NewInt(500_000_000)
	reserveB := big.NewInt(50_000_000_000_000)
	amountIn := big.NewInt(1_000_000)

	q, err := ComputeQuote(amountIn, reserveA, reserveB, 130, 100)
	require.NoError(t, err)

	// inWithFee = 987000; out = 987000 * 5e13 / 500987000
	assert.Equal(t, "98505550044", q.AmountOut.String())
	assert.Equal(t, "97520494543", q.MinAmountOut.String())
	assert.Equal(t, "13000", q.FeeAmount.String())
	assert.Equal(t, int64(149), q.PriceImpactBps)
	assert.InDelta(t, 0.0149445, q.PriceImpact, 1e-6)
	assert.LessOrEqual(t, q.MinAmountOut.Cmp(q.AmountOut), 0)
}

func TestPriceImpact_SmallTrade(t *testing.T) {
	reserve := big.NewInt(1_000_000_000_000_000)
	in := big.NewInt(1_000_000)
	out, err := CalculateSwapOutput(in, reserve, reserve, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(999_999), out.Int64())
	assert.Equal(t, int64(0), ImpactToBps(PriceImpact(in, out, reserve, reserve)))
}

func TestExecutionPrice(t *testing.T) {
	price := ExecutionPrice(big.NewInt(1_000_000), big.NewInt(98_505_550_044), 8, 6)
	assert.True(t, price.Equal(decimal.RequireFromString("9850555.0044")), price.String())

	assert.True(t, ExecutionPrice(big.NewInt(0), big.NewInt(5), 8, 6).IsZero())
}
