// Package swap drives one user's swap session: wallet connection, pool and
// amount selection, debounced quoting with stale-result suppression, and
// execution.
package swap

import (
	"context"
	"errors"

	"github.com/aman-zulfiqar/spark-swap/internal/auth"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

var (
	ErrNotConnected   = errors.New("wallet not connected")
	ErrNoPool         = errors.New("no pool selected")
	ErrUnknownPool    = errors.New("pool not found")
	ErrNoQuote        = errors.New("no quote for current inputs")
	ErrQuoteStale     = errors.New("quote does not match current inputs")
	ErrSwapInProgress = errors.New("swap in progress")
	ErrRiskRejected   = errors.New("swap rejected by risk limits")
)

// State is the session's position in the swap lifecycle.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StatePoolSelected State = "POOL_SELECTED"
	StateQuoting      State = "QUOTING"
	StateReadyToSwap  State = "READY_TO_SWAP"
	StateSwapping     State = "SWAPPING"
	StateSucceeded    State = "SUCCEEDED"
	StateFailed       State = "FAILED"
)

// Direction selects which pool asset is sold.
type Direction string

const (
	AToB Direction = "A_TO_B"
	BToA Direction = "B_TO_A"
)

// Wallet is the part of the wallet the session needs.
type Wallet interface {
	Connect(ctx context.Context) (*wallet.Account, error)
	SignMessage(ctx context.Context, message string) (string, error)
}

// Authenticator runs the challenge/verify exchange.
type Authenticator interface {
	Authenticate(ctx context.Context, publicKey string, sign auth.SignFunc) error
	Clear()
}

// Swapper quotes and executes swaps.
type Swapper interface {
	SimulateSwap(ctx context.Context, params models.SwapParams) (*models.SwapQuote, error)
	ExecuteQuoted(ctx context.Context, params models.SwapParams, quote *models.SwapQuote) *models.SwapResult
}

// Market supplies pool data and is told when a swap changed reserves.
type Market interface {
	Pools(ctx context.Context, q *models.ListPoolsQuery) ([]models.Pool, error)
	Pool(ctx context.Context, poolID string) (*models.Pool, error)
	InvalidateAfterSwap(ctx context.Context)
}

// Journal records swap attempts.
type Journal interface {
	Record(ctx context.Context, swap *models.SwapEvent) error
}

// Snapshot is a consistent copy of the session for display.
type Snapshot struct {
	State       State              `json:"state"`
	Account     *wallet.Account    `json:"account,omitempty"`
	Pool        *models.Pool       `json:"pool,omitempty"`
	Direction   Direction          `json:"direction"`
	TokenIn     *models.Token      `json:"tokenIn,omitempty"`
	TokenOut    *models.Token      `json:"tokenOut,omitempty"`
	Amount      string             `json:"amount"`
	SlippageBps uint32             `json:"slippageBps"`
	Quote       *models.SwapQuote  `json:"quote,omitempty"`
	QuoteError  string             `json:"quoteError,omitempty"`
	Risk        *RiskCheckResult   `json:"risk,omitempty"`
	LastResult  *models.SwapResult `json:"lastResult,omitempty"`
}

// Tokens derives the sold and bought token from pool and direction.
func Tokens(pool *models.Pool, dir Direction) (in, out models.Token, inAddr, outAddr string) {
	if dir == BToA {
		return pool.AssetB, pool.AssetA, pool.AssetBAddress, pool.AssetAAddress
	}
	return pool.AssetA, pool.AssetB, pool.AssetAAddress, pool.AssetBAddress
}
