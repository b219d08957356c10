package server

import (
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

type HealthResponse struct {
	OK       bool `json:"ok"`
	MockData bool `json:"mockData"`
}

type PoolsResponse struct {
	Items []models.Pool `json:"items"`
}

// QuoteResponse is a quote plus its display-unit rendering.
type QuoteResponse struct {
	Quote             *models.SwapQuote `json:"quote"`
	AmountIn          string            `json:"amountIn"`
	ExpectedAmountOut string            `json:"expectedAmountOut"`
	MinimumAmountOut  string            `json:"minimumAmountOut"`
	TokenIn           models.Token      `json:"tokenIn"`
	TokenOut          models.Token      `json:"tokenOut"`
}

type TokenResponse struct {
	models.Token
	Address string `json:"address"`
	Known   bool   `json:"known"`
}

// proxy error bodies

type proxyUsageError struct {
	Error string `json:"error"`
	Usage string `json:"usage"`
}

type proxyPathError struct {
	Error    string `json:"error"`
	Received string `json:"received"`
}

type proxyFailure struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
