package flashnet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
)

// GetSwapHistory returns recent swaps, for one pool when q.PoolID is set.
func (c *Client) GetSwapHistory(ctx context.Context, q models.SwapHistoryQuery) (*models.SwapHistory, error) {
	if c.mock {
		return &models.SwapHistory{Swaps: []models.SwapHistoryItem{}}, nil
	}

	path := "/v1/swaps"
	if q.PoolID != "" {
		path = "/v1/pools/" + url.PathEscape(q.PoolID) + "/swaps"
	}
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.AssetAddress != "" {
		v.Set("assetAddress", q.AssetAddress)
	}

	var out apiSwapList
	if err := c.fetchAPI(ctx, transport.Request{Method: http.MethodGet, Path: path, Query: v}, &out); err != nil {
		return nil, err
	}

	h := &models.SwapHistory{
		Swaps:      make([]models.SwapHistoryItem, 0, len(out.Swaps)),
		TotalCount: out.TotalCount,
	}
	for _, s := range out.Swaps {
		item, err := toHistoryItem(s)
		if err != nil {
			return nil, err
		}
		h.Swaps = append(h.Swaps, item)
	}
	if h.TotalCount < len(h.Swaps) {
		h.TotalCount = len(h.Swaps)
	}
	return h, nil
}

func toHistoryItem(s apiSwap) (models.SwapHistoryItem, error) {
	in, err := parseBaseUnits("amountIn", s.AmountIn)
	if err != nil {
		return models.SwapHistoryItem{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	out, err := parseBaseUnits("amountOut", s.AmountOut)
	if err != nil {
		return models.SwapHistoryItem{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	fee, err := parseBaseUnits("feePaid", s.FeePaid)
	if err != nil {
		return models.SwapHistoryItem{}, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	pool := s.PoolID
	if pool == "" {
		pool = s.PoolLPPublicKey
	}
	return models.SwapHistoryItem{
		ID:               s.ID,
		PoolID:           pool,
		SwapperPublicKey: s.SwapperPublicKey,
		AmountIn:         in,
		AmountOut:        out,
		AssetInAddress:   s.AssetInAddress,
		AssetOutAddress:  s.AssetOutAddress,
		FeePaid:          fee,
		Price:            s.Price.Decimal,
		CreatedAt:        parseTime(s.CreatedAt),
	}, nil
}
