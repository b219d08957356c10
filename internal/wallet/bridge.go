package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// BridgeConfig holds configuration for the wallet bridge client
type BridgeConfig struct {
	URL          string
	Timeout      time.Duration // Signing prompts can take a while; keep this generous
	MaxRetries   int           // Applies to read-only methods only
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// Bridge is a Provider that forwards wallet requests as JSON-RPC calls to a
// local wallet bridge process.
type Bridge struct {
	httpClient   *http.Client
	url          string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
	nextID       atomic.Int64
}

// Methods that never prompt the user and may be retried.
var readOnlyMethods = map[string]bool{
	MethodGetBalance: true,
}

func NewBridge(cfg BridgeConfig) (*Bridge, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("wallet: bridge URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Bridge{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		url:          cfg.URL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Request makes a JSON-RPC call. The bridge's result is the tagged wallet
// response; an envelope-level error is reported as a wallet error status.
func (b *Bridge) Request(ctx context.Context, method string, params any) (*Response, error) {
	data, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      b.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := 1
	if readOnlyMethods[method] {
		attempts += b.maxRetries
	}

	var lastErr error
	backoff := b.retryBackoff
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			b.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying wallet call")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, err := b.doRequest(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		var env rpcResponse
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if env.Error != nil {
			return Failure(env.Error.Code, env.Error.Message), nil
		}
		return DecodeResponse(env.Result)
	}

	return nil, lastErr
}

func (b *Bridge) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrWalletUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrWalletNotFound, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: bridge status %d", ErrWalletUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
