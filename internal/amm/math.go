package amm

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// BpsDenominator is 100% expressed in basis points.
const BpsDenominator = 10000

var (
	ErrInvalidAmount = errors.New("amount in must be > 0")
	ErrEmptyReserves = errors.New("pool reserves must be > 0")
	ErrInvalidFee    = errors.New("fee must be < 10000 bps")
)

var bpsDenom = big.NewInt(BpsDenominator)

// CalculateSwapOutput computes the constant-product output for amountIn with
// totalFeeBps taken from the input first:
//
//	amountInWithFee = amountIn * (10000 - fee) / 10000
//	amountOut = amountInWithFee * reserveOut / (reserveIn + amountInWithFee)
func CalculateSwapOutput(amountIn, reserveIn, reserveOut *big.Int, totalFeeBps uint32) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrEmptyReserves
	}
	if totalFeeBps >= BpsDenominator {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFee, totalFeeBps)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(BpsDenominator-totalFeeBps)))
	amountInWithFee.Quo(amountInWithFee, bpsDenom)

	// reserveIn > 0 keeps the denominator non-zero.
	denominator := new(big.Int).Add(reserveIn, amountInWithFee)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	return numerator.Quo(numerator, denominator), nil
}

// ApplySlippage returns amountOut * (10000 - slippageBps) / 10000.
// Slippage of 100% or more floors to zero.
func ApplySlippage(amountOut *big.Int, slippageBps uint32) *big.Int {
	if amountOut == nil || slippageBps >= BpsDenominator {
		return new(big.Int)
	}
	out := new(big.Int).Mul(amountOut, big.NewInt(int64(BpsDenominator-slippageBps)))
	return out.Quo(out, bpsDenom)
}

// FeeAmount is the fee charged in the input asset: amountIn * totalFeeBps / 10000.
func FeeAmount(amountIn *big.Int, totalFeeBps uint32) *big.Int {
	if amountIn == nil {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(amountIn, big.NewInt(int64(totalFeeBps)))
	return fee.Quo(fee, bpsDenom)
}

// PriceImpact returns |spot - effective| / spot as a fraction, where
// spot = reserveOut/reserveIn and effective = amountOut/amountIn.
func PriceImpact(amountIn, amountOut, reserveIn, reserveOut *big.Int) float64 {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return 0
	}
	spot := toFloat(reserveOut) / toFloat(reserveIn)
	if spot == 0 {
		return 0
	}
	effective := toFloat(amountOut) / toFloat(amountIn)
	return math.Abs(spot-effective) / spot
}

// ImpactToBps rounds a fractional price impact to basis points.
func ImpactToBps(impact float64) int64 {
	return int64(math.Round(impact * BpsDenominator))
}

// ExecutionPrice is output per input in display units.
func ExecutionPrice(amountIn, amountOut *big.Int, decimalsIn, decimalsOut uint8) decimal.Decimal {
	if amountIn == nil || amountIn.Sign() <= 0 || amountOut == nil {
		return decimal.Zero
	}
	in := decimal.NewFromBigInt(amountIn, -int32(decimalsIn))
	out := decimal.NewFromBigInt(amountOut, -int32(decimalsOut))
	return out.DivRound(in, 18)
}

// Quote holds everything derived from one pricing computation.
type Quote struct {
	AmountOut      *big.Int
	MinAmountOut   *big.Int
	FeeAmount      *big.Int
	PriceImpact    float64
	PriceImpactBps int64
}

// ComputeQuote runs the full pricing pipeline for one direction of a pool.
func ComputeQuote(amountIn, reserveIn, reserveOut *big.Int, totalFeeBps, slippageBps uint32) (*Quote, error) {
	out, err := CalculateSwapOutput(amountIn, reserveIn, reserveOut, totalFeeBps)
	if err != nil {
		return nil, err
	}
	impact := PriceImpact(amountIn, out, reserveIn, reserveOut)
	return &Quote{
		AmountOut:      out,
		MinAmountOut:   ApplySlippage(out, slippageBps),
		FeeAmount:      FeeAmount(amountIn, totalFeeBps),
		PriceImpact:    impact,
		PriceImpactBps: ImpactToBps(impact),
	}, nil
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
