// Package flashnet is the client for the Flashnet AMM API: pool listings,
// swap simulation with a local pricing fallback, wallet-signed execution and
// swap history.
package flashnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/tokens"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

var (
	ErrAuthRequired   = errors.New("Authentication required - please reconnect your wallet")
	ErrUnavailable    = errors.New("flashnet api unavailable")
	ErrRejected       = errors.New("flashnet api rejected request")
	ErrNotFound       = errors.New("flashnet resource not found")
	ErrBadResponse    = errors.New("malformed flashnet response")
	ErrInvalidParams  = errors.New("invalid swap params")
	ErrAssetNotInPool = errors.New("asset is not part of pool")
	ErrNoReserves     = errors.New("pool reserves unavailable")
)

// API is the transport the client sends requests through.
type API interface {
	Do(ctx context.Context, req transport.Request) ([]byte, error)
}

// TokenSource supplies bearer tokens and is told when the server rejects one.
type TokenSource interface {
	ValidToken(ctx context.Context) (string, bool)
	Clear()
}

// TokenResolver maps asset addresses to display metadata.
type TokenResolver interface {
	Lookup(address string) models.Token
}

// SwapExecutor is the wallet capability that signs and submits swaps.
type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, req wallet.ExecuteSwapRequest) (*wallet.ExecuteSwapResult, error)
}

// Config holds configuration for the Flashnet client
type Config struct {
	API             API
	Auth            TokenSource   // Optional; requests are unauthenticated without it
	Tokens          TokenResolver // Optional; falls back to address-derived names
	Wallet          SwapExecutor  // Optional; required for ExecuteSwap
	SimulateTimeout time.Duration // Remote simulate deadline before local pricing
	UseMockData     bool          // Serve built-in pools and price locally
	Logger          *logrus.Logger
}

// poolMemory keeps the last snapshot of every pool seen, for local pricing.
type poolMemory struct {
	mu    sync.RWMutex
	pools map[string]models.Pool
}

func (m *poolMemory) put(pools ...models.Pool) {
	m.mu.Lock()
	for _, p := range pools {
		m.pools[p.PoolID] = p
	}
	m.mu.Unlock()
}

func (m *poolMemory) get(id string) (models.Pool, bool) {
	m.mu.RLock()
	p, ok := m.pools[id]
	m.mu.RUnlock()
	return p, ok
}

type stats struct {
	simulations atomic.Int64
	fallbacks   atomic.Int64
}

// Client is safe for concurrent use.
type Client struct {
	api             API
	auth            TokenSource
	tokens          TokenResolver
	wallet          SwapExecutor
	simulateTimeout time.Duration
	mock            bool
	logger          *logrus.Logger

	known *poolMemory
	stats *stats
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.API == nil && !cfg.UseMockData {
		return nil, fmt.Errorf("flashnet: API transport is required")
	}
	if cfg.SimulateTimeout <= 0 {
		cfg.SimulateTimeout = 8 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	c := &Client{
		api:             cfg.API,
		auth:            cfg.Auth,
		tokens:          cfg.Tokens,
		wallet:          cfg.Wallet,
		simulateTimeout: cfg.SimulateTimeout,
		mock:            cfg.UseMockData,
		logger:          cfg.Logger,
		known:           &poolMemory{pools: make(map[string]models.Pool)},
		stats:           &stats{},
	}
	if c.mock {
		c.known.put(MockPools()...)
	}
	return c, nil
}

// WithSession returns a client bound to one user's session and wallet. It
// shares pool memory and counters with c.
func (c *Client) WithSession(auth TokenSource, w SwapExecutor) *Client {
	cp := *c
	cp.auth = auth
	cp.wallet = w
	return &cp
}

// Stats reports how many simulations ran and how many were priced locally.
func (c *Client) Stats() (simulations, fallbacks int64) {
	return c.stats.simulations.Load(), c.stats.fallbacks.Load()
}

func (c *Client) lookupToken(address string) models.Token {
	if c.tokens != nil {
		return c.tokens.Lookup(address)
	}
	return tokens.Fallback(address)
}

// fetchAPI sends req with the current bearer token and decodes the JSON
// answer into out. Transport failures come back as one of the package errors.
func (c *Client) fetchAPI(ctx context.Context, req transport.Request, out any) error {
	if c.auth != nil {
		if token, ok := c.auth.ValidToken(ctx); ok {
			req.Token = token
		}
	}

	body, err := c.api.Do(ctx, req)
	if err != nil {
		return c.classify(req, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}

func (c *Client) classify(req transport.Request, err error) error {
	var he *transport.HTTPError
	if !errors.As(err, &he) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	switch {
	case he.StatusCode == http.StatusUnauthorized:
		if c.auth != nil {
			c.auth.Clear()
		}
		c.logger.WithField("path", req.Path).Warn("api rejected bearer token, session cleared")
		return ErrAuthRequired
	case he.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, he)
	case he.Retryable():
		return fmt.Errorf("%w: %w", ErrUnavailable, he)
	default:
		return fmt.Errorf("%w: %w", ErrRejected, he)
	}
}
