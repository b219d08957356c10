package swap

import (
	"fmt"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// RiskConfig defines risk management parameters
type RiskConfig struct {
	// Slippage constraints
	DefaultSlippageBps uint32 // Used until the user picks a value
	MaxSlippageBps     uint32 // Requests above this are clamped

	// Price impact limit; 0 disables the check
	MaxPriceImpactBps int64
}

// DefaultRiskConfig returns conservative risk settings
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		DefaultSlippageBps: constants.DefaultSlippageBps, // 1%
		MaxSlippageBps:     constants.MaxSlippageBps,     // 10%
		MaxPriceImpactBps:  constants.MaxPriceImpactBps,  // 15%
	}
}

// RiskCheckResult contains risk validation outcome
type RiskCheckResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`

	PriceImpactTooHigh bool  `json:"priceImpactTooHigh,omitempty"`
	PriceImpactBps     int64 `json:"priceImpactBps"`
	MaxPriceImpactBps  int64 `json:"maxPriceImpactBps"`
}

// RiskManager enforces risk limits
type RiskManager struct {
	config RiskConfig
}

func NewRiskManager(config RiskConfig) *RiskManager {
	if config.MaxSlippageBps == 0 || config.MaxSlippageBps >= constants.BpsDenominator {
		config.MaxSlippageBps = constants.MaxSlippageBps
	}
	if config.DefaultSlippageBps > config.MaxSlippageBps {
		config.DefaultSlippageBps = config.MaxSlippageBps
	}
	return &RiskManager{config: config}
}

func (rm *RiskManager) DefaultSlippage() uint32 {
	return rm.config.DefaultSlippageBps
}

// ClampSlippage bounds bps to the configured maximum.
func (rm *RiskManager) ClampSlippage(bps uint32) uint32 {
	if bps > rm.config.MaxSlippageBps {
		return rm.config.MaxSlippageBps
	}
	return bps
}

// CheckQuote validates a quote against the price impact limit.
func (rm *RiskManager) CheckQuote(quote *models.SwapQuote) *RiskCheckResult {
	result := &RiskCheckResult{
		Allowed:           true,
		MaxPriceImpactBps: rm.config.MaxPriceImpactBps,
	}
	if quote == nil {
		result.Allowed = false
		result.Reason = "no quote"
		return result
	}

	result.PriceImpactBps = quote.PriceImpactBps
	if rm.config.MaxPriceImpactBps > 0 && quote.PriceImpactBps > rm.config.MaxPriceImpactBps {
		result.Allowed = false
		result.PriceImpactTooHigh = true
		result.Reason = fmt.Sprintf("price impact %.2f%% exceeds max %.2f%%",
			float64(quote.PriceImpactBps)/100, float64(rm.config.MaxPriceImpactBps)/100)
	}
	return result
}
