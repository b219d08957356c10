// Package tokens resolves Spark token metadata from a built-in list and
// public token lists fetched at runtime.
package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

const defaultDecimals = 8

// Config holds configuration for the token registry
type Config struct {
	Sources         []string      // Token list URLs
	RefreshInterval time.Duration // Minimum time between list fetches
	HTTP            *http.Client
	Logger          *logrus.Logger
	Now             func() time.Time
}

// Registry is safe for concurrent use.
type Registry struct {
	sources  []string
	interval time.Duration
	http     *http.Client
	logger   *logrus.Logger
	now      func() time.Time

	mu        sync.RWMutex
	tokens    map[string]models.Token
	lastFetch time.Time
	fetching  bool
}

// NewRegistry creates a registry seeded with BTC and the known Spark tokens
func NewRegistry(cfg Config) *Registry {
	if cfg.Sources == nil {
		cfg.Sources = constants.TokenListSources
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = constants.TokenListRefresh
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := &Registry{
		sources:  cfg.Sources,
		interval: cfg.RefreshInterval,
		http:     cfg.HTTP,
		logger:   cfg.Logger,
		now:      cfg.Now,
		tokens:   make(map[string]models.Token, len(knownTokens)+1),
	}
	for addr, t := range knownTokens {
		t.PublicKey = addr
		r.tokens[addr] = t
	}
	return r
}

// Lookup returns metadata for address. Unknown addresses get a name and
// ticker derived from the address prefix and 8 decimals.
func (r *Registry) Lookup(address string) models.Token {
	if t, ok := r.Get(address); ok {
		return t
	}
	return Fallback(address)
}

// Get returns metadata only for addresses the registry knows.
func (r *Registry) Get(address string) (models.Token, bool) {
	r.mu.RLock()
	t, ok := r.tokens[address]
	r.mu.RUnlock()
	if !ok {
		return models.Token{}, false
	}
	t.PublicKey = address
	return t, true
}

// Add registers or replaces a token.
func (r *Registry) Add(t models.Token) {
	if t.PublicKey == "" {
		return
	}
	r.mu.Lock()
	r.tokens[t.PublicKey] = t
	r.mu.Unlock()
}

func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// Fallback synthesizes display metadata for an unknown asset.
func Fallback(address string) models.Token {
	return models.Token{
		PublicKey: address,
		Name:      "Token " + prefix(address, 8),
		Ticker:    strings.ToUpper(prefix(address, 6)),
		Decimals:  defaultDecimals,
	}
}

type tokenList struct {
	Tokens []tokenListItem `json:"tokens"`
}

type tokenListItem struct {
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals *int   `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

// Refresh fetches every source in parallel and merges the results. It is a
// no-op while another refresh runs or within the refresh interval of the
// last one. Failing sources are logged and skipped. It returns the number
// of tokens loaded.
func (r *Registry) Refresh(ctx context.Context) int {
	r.mu.Lock()
	if r.fetching || (!r.lastFetch.IsZero() && r.now().Sub(r.lastFetch) < r.interval) {
		r.mu.Unlock()
		return 0
	}
	r.fetching = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.fetching = false
		r.lastFetch = r.now()
		r.mu.Unlock()
	}()

	results := make([][]models.Token, len(r.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		g.Go(func() error {
			toks, err := r.fetchList(gctx, src)
			if err != nil {
				r.logger.WithError(err).WithField("source", src).Warn("token list fetch failed")
				return nil
			}
			results[i] = toks
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	r.mu.Lock()
	for _, toks := range results {
		for _, t := range toks {
			r.tokens[t.PublicKey] = t
			total++
		}
	}
	size := len(r.tokens)
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"loaded": total,
		"unique": size,
	}).Info("token lists refreshed")
	return total
}

// Run refreshes on every interval tick until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	r.Refresh(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

func (r *Registry) fetchList(ctx context.Context, src string) ([]models.Token, error) {
	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		res, err := r.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		b, err := io.ReadAll(res.Body)
		if err != nil {
			return err
		}
		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("HTTP %d", res.StatusCode)
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("HTTP %d", res.StatusCode))
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, 2), ctx)); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", src, err)
	}

	var list tokenList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("invalid token list format from %s: %w", src, err)
	}

	out := make([]models.Token, 0, len(list.Tokens))
	for _, item := range list.Tokens {
		if item.Address == "" || item.Symbol == "" {
			continue
		}
		decimals := defaultDecimals
		if item.Decimals != nil && *item.Decimals >= 0 && *item.Decimals <= 255 {
			decimals = *item.Decimals
		}
		name := item.Name
		if name == "" {
			name = item.Symbol
		}
		out = append(out, models.Token{
			PublicKey: item.Address,
			Name:      name,
			Ticker:    item.Symbol,
			Decimals:  uint8(decimals),
			LogoURL:   item.LogoURI,
		})
	}
	return out, nil
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
