package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/flashnet"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

// MarketData is the cached read side of the AMM.
type MarketData interface {
	Pools(ctx context.Context, q *models.ListPoolsQuery) ([]models.Pool, error)
	Pool(ctx context.Context, poolID string) (*models.Pool, error)
	SwapHistory(ctx context.Context, q models.SwapHistoryQuery) (*models.SwapHistory, error)
	TopMovers(ctx context.Context, limit int) (*models.TopMovers, error)
}

type Quoter interface {
	SimulateSwap(ctx context.Context, params models.SwapParams) (*models.SwapQuote, error)
}

type TokenLookup interface {
	Lookup(address string) models.Token
	Get(address string) (models.Token, bool)
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Market   MarketData     // Cached pool listings and history
	Quoter   Quoter         // Remote simulation with local fallback
	Tokens   TokenLookup    // Token metadata registry
	MockData bool           // Reported by /v1/health
	DevMode  bool           // Enable detailed error responses in development
	Logger   *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// upstreamErr maps AMM client errors onto HTTP statuses.
func (h *Handlers) upstreamErr(c echo.Context, msg string, err error) error {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, flashnet.ErrInvalidParams), errors.Is(err, flashnet.ErrAssetNotInPool):
		code = http.StatusBadRequest
	case errors.Is(err, flashnet.ErrAuthRequired):
		code = http.StatusUnauthorized
	case errors.Is(err, flashnet.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, flashnet.ErrNoReserves):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	h.Logger.WithError(err).WithField("path", c.Path()).Warn(msg)
	return h.err(c, code, msg, err.Error())
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true, MockData: h.MockData})
}

var poolSorts = map[models.PoolSort]bool{
	models.SortTVLDesc:       true,
	models.SortTVLAsc:        true,
	models.SortVolumeDesc:    true,
	models.SortVolumeAsc:     true,
	models.SortCreatedAtDesc: true,
	models.SortCreatedAtAsc:  true,
}

// Pools lists pools. Accepts limit (1-200, default 50), offset, sort,
// minTvl, minVolume24h, assetA and assetB.
func (h *Handlers) Pools(c echo.Context) error {
	limit, offset, fe := page(c, constants.DefaultPoolPageSize)
	if fe != nil {
		return h.badField(c, fe)
	}

	q := &models.ListPoolsQuery{
		Limit:         limit,
		Offset:        offset,
		Sort:          models.PoolSort(c.QueryParam("sort")),
		MinTVL:        c.QueryParam("minTvl"),
		MinVolume24h:  c.QueryParam("minVolume24h"),
		AssetAAddress: c.QueryParam("assetA"),
		AssetBAddress: c.QueryParam("assetB"),
	}
	if q.Sort != "" && !poolSorts[q.Sort] {
		return h.err(c, http.StatusBadRequest, "invalid sort", map[string]any{"sort": string(q.Sort)})
	}
	for field, v := range map[string]string{"minTvl": q.MinTVL, "minVolume24h": q.MinVolume24h} {
		if v == "" {
			continue
		}
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 {
			return h.err(c, http.StatusBadRequest, "invalid "+field, map[string]any{field: "must be a non-negative number"})
		}
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	pools, err := h.Market.Pools(ctx, q)
	if err != nil {
		return h.upstreamErr(c, "failed to list pools", err)
	}
	if pools == nil {
		pools = []models.Pool{}
	}
	return c.JSON(http.StatusOK, PoolsResponse{Items: pools})
}

// Pool returns a single pool by id
func (h *Handlers) Pool(c echo.Context) error {
	id := c.Param("id")

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, err := h.Market.Pool(ctx, id)
	if err != nil {
		return h.upstreamErr(c, "failed to load pool", err)
	}
	if p == nil {
		return h.err(c, http.StatusNotFound, "pool not found", map[string]any{"poolId": id})
	}
	return c.JSON(http.StatusOK, p)
}

// PoolSwaps returns swap history for one pool
func (h *Handlers) PoolSwaps(c echo.Context) error {
	return h.history(c, c.Param("id"))
}

// Swaps returns global swap history, optionally filtered by assetAddress
func (h *Handlers) Swaps(c echo.Context) error {
	return h.history(c, "")
}

func (h *Handlers) history(c echo.Context, poolID string) error {
	limit, offset, fe := page(c, 20)
	if fe != nil {
		return h.badField(c, fe)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	hist, err := h.Market.SwapHistory(ctx, models.SwapHistoryQuery{
		PoolID:       poolID,
		AssetAddress: c.QueryParam("assetAddress"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return h.upstreamErr(c, "failed to load swap history", err)
	}
	if hist.Swaps == nil {
		hist.Swaps = []models.SwapHistoryItem{}
	}
	return c.JSON(http.StatusOK, hist)
}

// Movers returns the top gainers and losers by 24h price change.
// Accepts limit (1-20, default 5).
func (h *Handlers) Movers(c echo.Context) error {
	limit := 5
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "must be an integer"})
		}
		limit = n
	}
	if limit < 1 || limit > 20 {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": "min 1 max 20"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	m, err := h.Market.TopMovers(ctx, limit)
	if err != nil {
		return h.upstreamErr(c, "failed to rank pools", err)
	}
	return c.JSON(http.StatusOK, m)
}

// Token returns registry metadata for an address; unknown addresses get
// derived metadata with known=false.
func (h *Handlers) Token(c echo.Context) error {
	addr := c.Param("address")
	t, known := h.Tokens.Get(addr)
	if !known {
		t = h.Tokens.Lookup(addr)
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: t, Address: addr, Known: known})
}

// fieldError describes one rejected query parameter.
type fieldError struct {
	Field string
	Hint  string
}

func (h *Handlers) badField(c echo.Context, fe *fieldError) error {
	return h.err(c, http.StatusBadRequest, "invalid "+fe.Field, map[string]any{fe.Field: fe.Hint})
}

// page reads limit (1-200) and offset.
func page(c echo.Context, def int) (limit, offset int, fe *fieldError) {
	limit = def
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, &fieldError{"limit", "must be an integer"}
		}
		limit = n
	}
	if limit < 1 || limit > 200 {
		return 0, 0, &fieldError{"limit", "min 1 max 200"}
	}
	if s := c.QueryParam("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, &fieldError{"offset", "must be a non-negative integer"}
		}
		offset = n
	}
	return limit, offset, nil
}
