// Package market serves pool listings and swap history through a TTL cache
// that is refreshed in the background and invalidated after swaps.
package market

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/aman-zulfiqar/spark-swap/internal/cache"
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// Source is the upstream the service caches.
type Source interface {
	FetchPools(ctx context.Context, q *models.ListPoolsQuery) ([]models.Pool, error)
	GetPool(ctx context.Context, poolID string) (*models.Pool, error)
	GetSwapHistory(ctx context.Context, q models.SwapHistoryQuery) (*models.SwapHistory, error)
}

// Config holds configuration for the market service
type Config struct {
	Source          Source
	Store           cache.Store   // Defaults to an in-memory store
	TTL             time.Duration // Freshness of cached entries
	RefreshInterval time.Duration // Background refresh period
	Logger          *logrus.Logger
}

type Service struct {
	source          Source
	store           cache.Store
	ttl             time.Duration
	refreshInterval time.Duration
	logger          *logrus.Logger
	group           singleflight.Group
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("market: source is required")
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewMemoryStore()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = constants.PoolCacheTTL
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = constants.PoolRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Service{
		source:          cfg.Source,
		store:           cfg.Store,
		ttl:             cfg.TTL,
		refreshInterval: cfg.RefreshInterval,
		logger:          cfg.Logger,
	}, nil
}

// Pools lists pools, served from cache while fresh.
func (s *Service) Pools(ctx context.Context, q *models.ListPoolsQuery) ([]models.Pool, error) {
	var pools []models.Pool
	err := s.cached(ctx, poolsKey(q), &pools, func(ctx context.Context) (any, error) {
		return s.source.FetchPools(ctx, q)
	})
	return pools, err
}

// Pool returns one pool or nil when it does not exist.
func (s *Service) Pool(ctx context.Context, poolID string) (*models.Pool, error) {
	key := constants.RedisKeyPoolsPrefix + "id:" + poolID
	var pool *models.Pool
	err := s.cached(ctx, key, &pool, func(ctx context.Context) (any, error) {
		return s.source.GetPool(ctx, poolID)
	})
	return pool, err
}

// SwapHistory returns recent swaps, served from cache while fresh.
func (s *Service) SwapHistory(ctx context.Context, q models.SwapHistoryQuery) (*models.SwapHistory, error) {
	key := constants.RedisKeySwapsPrefix + "history:" + queryKey(q)
	var h models.SwapHistory
	err := s.cached(ctx, key, &h, func(ctx context.Context) (any, error) {
		return s.source.GetSwapHistory(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// TopMovers ranks the most traded pools by 24h price change.
func (s *Service) TopMovers(ctx context.Context, limit int) (*models.TopMovers, error) {
	pools, err := s.Pools(ctx, &models.ListPoolsQuery{
		Limit: constants.TopMoversPoolLimit,
		Sort:  models.SortVolumeDesc,
	})
	if err != nil {
		return nil, err
	}
	return RankMovers(pools, limit), nil
}

// RankMovers splits pools into gainers (largest rise first) and losers
// (largest fall first), each capped at limit when limit > 0.
func RankMovers(pools []models.Pool, limit int) *models.TopMovers {
	out := &models.TopMovers{Gainers: []models.TopMover{}, Losers: []models.TopMover{}}
	for _, p := range pools {
		switch p.PriceChange24h.Sign() {
		case 1:
			out.Gainers = append(out.Gainers, models.TopMover{Pool: p, Change: p.PriceChange24h})
		case -1:
			out.Losers = append(out.Losers, models.TopMover{Pool: p, Change: p.PriceChange24h})
		}
	}
	sort.SliceStable(out.Gainers, func(i, j int) bool { return out.Gainers[i].Change.GreaterThan(out.Gainers[j].Change) })
	sort.SliceStable(out.Losers, func(i, j int) bool { return out.Losers[i].Change.LessThan(out.Losers[j].Change) })
	if limit > 0 {
		if len(out.Gainers) > limit {
			out.Gainers = out.Gainers[:limit]
		}
		if len(out.Losers) > limit {
			out.Losers = out.Losers[:limit]
		}
	}
	return out
}

// InvalidateAfterSwap drops pool and history entries; reserves changed.
func (s *Service) InvalidateAfterSwap(ctx context.Context) {
	for _, prefix := range []string{constants.RedisKeyPoolsPrefix, constants.RedisKeySwapsPrefix} {
		if err := s.store.DeletePrefix(ctx, prefix); err != nil {
			s.logger.WithError(err).WithField("prefix", prefix).Warn("cache invalidation failed")
		}
	}
}

// Refresh reloads the default pool listing into the cache.
func (s *Service) Refresh(ctx context.Context) error {
	pools, err := s.source.FetchPools(ctx, nil)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, poolsKey(nil), pools, s.ttl); err != nil {
		s.logger.WithError(err).Warn("cache write failed")
	}
	s.logger.WithField("pools", len(pools)).Debug("pool cache refreshed")
	return nil
}

// Run refreshes the pool cache every refresh interval until ctx ends.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.WithError(err).Warn("pool refresh failed")
			}
		}
	}
}

// cached reads key into dst, or loads it once across concurrent callers
// and stores the result. Cache failures degrade to direct loads.
func (s *Service) cached(ctx context.Context, key string, dst any, load func(context.Context) (any, error)) error {
	ok, err := s.store.Get(ctx, key, dst)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Debug("cache read failed")
	}
	if ok {
		return nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.store.Set(ctx, key, v, s.ttl); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("cache write failed")
		}
		return v, nil
	})
	if err != nil {
		return err
	}

	// Each caller decodes its own copy.
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

func poolsKey(q *models.ListPoolsQuery) string {
	return constants.RedisKeyPoolsPrefix + "list:" + queryKey(q)
}

func queryKey(q any) string {
	b, _ := json.Marshal(q)
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:8])
}
