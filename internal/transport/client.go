// Package transport issues Flashnet API requests, either directly or through
// a pass-through proxy that takes the API path as a query parameter.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
)

// Config holds configuration for the API transport
type Config struct {
	APIBase      string        // Upstream base URL, used when ProxyURL is empty
	ProxyURL     string        // Proxy endpoint accepting ?path=
	Timeout      time.Duration // Per-request timeout
	MaxRetries   int           // Retries for idempotent requests
	RetryBackoff time.Duration // Initial backoff between retries
	Logger       *logrus.Logger
	HTTP         *http.Client // Optional; built from Timeout when nil
}

// Client sends JSON requests to the Flashnet API
type Client struct {
	httpClient   *http.Client
	apiBase      string
	proxyURL     string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// NewClient creates a transport with retry support
func NewClient(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	apiBase := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if apiBase == "" {
		apiBase = constants.FlashnetAPIBase
	}

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &Client{
		httpClient:   httpClient,
		apiBase:      apiBase,
		proxyURL:     strings.TrimSpace(cfg.ProxyURL),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// HTTPError is a non-2xx response from the API or the proxy
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("API Error %d", e.StatusCode)
	}
	return fmt.Sprintf("API Error %d: %s", e.StatusCode, b)
}

// Retryable reports whether a later identical request might succeed.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Request describes one API call. Body is JSON encoded when non-nil.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Token  string // Bearer token, omitted when empty
}

// URL resolves an API path, with optional query, to the address actually requested.
func (c *Client) URL(path string, query url.Values) string {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	if c.proxyURL == "" {
		return c.apiBase + path
	}
	sep := "?"
	if strings.Contains(c.proxyURL, "?") {
		sep = "&"
	}
	return c.proxyURL + sep + "path=" + url.QueryEscape(path)
}

// Proxied reports whether requests go through the proxy.
func (c *Client) Proxied() bool {
	return c.proxyURL != ""
}

// Do sends the request and returns the response body of a 2xx answer.
// GET requests are retried with exponential backoff on transport errors,
// 429 and 5xx. Other methods are attempted once.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = data
	}

	target := c.URL(req.Path, req.Query)
	if req.Method != http.MethodGet || c.maxRetries == 0 {
		return c.doRequest(ctx, req, target, payload)
	}

	var body []byte
	op := func() error {
		b, err := c.doRequest(ctx, req, target, payload)
		if err != nil {
			if he, ok := err.(*HTTPError); ok && !he.Retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryBackoff
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx)

	err := backoff.RetryNotify(op, b, func(err error, wait time.Duration) {
		c.logger.WithFields(logrus.Fields{
			"path":    req.Path,
			"backoff": wait,
			"error":   err.Error(),
		}).Debug("retrying api request")
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) doRequest(ctx context.Context, req Request, target string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}
	return body, nil
}
