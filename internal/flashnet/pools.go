package flashnet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
)

// FetchPools lists pools matching q. A nil query lists with API defaults.
func (c *Client) FetchPools(ctx context.Context, q *models.ListPoolsQuery) ([]models.Pool, error) {
	if c.mock {
		return filterMockPools(q), nil
	}

	var out apiPoolList
	err := c.fetchAPI(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/v1/pools",
		Query:  poolsQuery(q),
	}, &out)
	if err != nil {
		return nil, err
	}

	pools := make([]models.Pool, 0, len(out.Pools))
	for _, raw := range out.Pools {
		p, err := c.toPool(raw)
		if err != nil {
			return nil, err
		}
		pools = append(pools, *p)
	}
	c.known.put(pools...)
	return pools, nil
}

// GetPool returns the pool or nil when the API does not know it.
func (c *Client) GetPool(ctx context.Context, poolID string) (*models.Pool, error) {
	if strings.TrimSpace(poolID) == "" {
		return nil, fmt.Errorf("poolId is required")
	}
	if c.mock {
		if p, ok := c.known.get(poolID); ok {
			return &p, nil
		}
		return nil, nil
	}

	var raw apiPool
	err := c.fetchAPI(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "/v1/pools/" + url.PathEscape(poolID),
	}, &raw)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p, err := c.toPool(raw)
	if err != nil {
		return nil, err
	}
	c.known.put(*p)
	return p, nil
}

// KnownPool returns the last snapshot of a pool seen by this client.
func (c *Client) KnownPool(poolID string) (*models.Pool, bool) {
	p, ok := c.known.get(poolID)
	if !ok {
		return nil, false
	}
	return &p, true
}

func poolsQuery(q *models.ListPoolsQuery) url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Sort != "" {
		v.Set("sort", string(q.Sort))
	}
	if q.MinTVL != "" {
		v.Set("minTvl", q.MinTVL)
	}
	if q.MinVolume24h != "" {
		v.Set("minVolume24h", q.MinVolume24h)
	}
	if q.AssetAAddress != "" {
		v.Set("assetAAddress", q.AssetAAddress)
	}
	if q.AssetBAddress != "" {
		v.Set("assetBAddress", q.AssetBAddress)
	}
	return v
}

func (c *Client) toPool(raw apiPool) (*models.Pool, error) {
	if raw.LPPublicKey == "" {
		return nil, fmt.Errorf("%w: pool without lpPublicKey", ErrBadResponse)
	}
	reserveA, err := parseBaseUnits("assetAReserve", raw.AssetAReserve)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	reserveB, err := parseBaseUnits("assetBReserve", raw.AssetBReserve)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	lpFee, err := parseBps("lpFeeBps", raw.LPFeeBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	hostFee, err := parseBps("hostFeeBps", raw.HostFeeBps)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}

	curve := models.CurveType(raw.CurveType)
	if curve == "" {
		curve = models.CurveConstantProduct
	}

	return &models.Pool{
		PoolID:         raw.LPPublicKey,
		LPPublicKey:    raw.LPPublicKey,
		HostName:       raw.HostName,
		AssetAAddress:  raw.AssetAAddress,
		AssetBAddress:  raw.AssetBAddress,
		AssetA:         c.lookupToken(raw.AssetAAddress),
		AssetB:         c.lookupToken(raw.AssetBAddress),
		Reserves:       models.Reserves{AssetA: reserveA, AssetB: reserveB},
		LPFeeBps:       lpFee,
		HostFeeBps:     hostFee,
		CurveType:      curve,
		TVL:            raw.TVLAssetB.Decimal,
		Volume24h:      raw.Volume24hAssetB.Decimal,
		PriceChange24h: raw.PriceChangePercent24h.Decimal,
		CurrentPrice:   raw.CurrentPriceAInB.Decimal,
		CreatedAt:      parseTime(raw.CreatedAt),
		UpdatedAt:      parseTime(raw.UpdatedAt),
	}, nil
}
