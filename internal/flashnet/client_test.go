package flashnet

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/spark-swap/internal/amount"
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

const vibePoolJSON = `{
	"lpPublicKey": "pool-vibe",
	"hostName": "flashnet",
	"hostFeeBps": "30",
	"lpFeeBps": 100,
	"assetAAddress": "` + constants.BTCAssetPubkey + `",
	"assetBAddress": "btkn1vibe",
	"assetAReserve": "500000000",
	"assetBReserve": "50000000000000",
	"tvlAssetB": "100000000",
	"volume24hAssetB": 420000.5,
	"priceChangePercent24h": "-1.2",
	"currentPriceAInB": null,
	"curveType": "CONSTANT_PRODUCT",
	"createdAt": "2025-01-02T03:04:05.000Z"
}`

type fakeTokens struct {
	token   string
	cleared atomic.Int32
}

func (f *fakeTokens) ValidToken(context.Context) (string, bool) {
	return f.token, f.token != ""
}

func (f *fakeTokens) Clear() { f.cleared.Add(1) }

type fakeWallet struct {
	req wallet.ExecuteSwapRequest
	res *wallet.ExecuteSwapResult
	err error
}

func (f *fakeWallet) ExecuteSwap(_ context.Context, req wallet.ExecuteSwapRequest) (*wallet.ExecuteSwapResult, error) {
	f.req = req
	return f.res, f.err
}

type tokenTable map[string]models.Token

func (t tokenTable) Lookup(addr string) models.Token {
	if tok, ok := t[addr]; ok {
		return tok
	}
	return models.Token{PublicKey: addr, Ticker: "UNK", Decimals: 8}
}

var testTokens = tokenTable{
	constants.BTCAssetPubkey: {PublicKey: constants.BTCAssetPubkey, Name: "Bitcoin", Ticker: "BTC", Decimals: 8},
	"btkn1vibe":              {PublicKey: "btkn1vibe", Name: "Vibe", Ticker: "VIBE", Decimals: 6},
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestClient(t *testing.T, h http.Handler, auth TokenSource, w SwapExecutor) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		API:    transport.NewClient(transport.Config{APIBase: srv.URL, MaxRetries: 0, Logger: quietLogger()}),
		Auth:   auth,
		Tokens: testTokens,
		Wallet: w,
		Logger: quietLogger(),
	})
	require.NoError(t, err)
	return c
}

func vibeParams(t *testing.T) models.SwapParams {
	t.Helper()
	in, err := amount.Parse("0.01", 8)
	require.NoError(t, err)
	return models.SwapParams{
		PoolID:          "pool-vibe",
		AssetInAddress:  constants.BTCAssetPubkey,
		AssetOutAddress: "btkn1vibe",
		AmountIn:        in,
		SlippageBps:     100,
		UserPublicKey:   "02abc",
	}
}

func TestClient_FetchPools_MapsWireFormat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TVL_DESC", r.URL.Query().Get("sort"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"pools":[` + vibePoolJSON + `],"totalCount":1}`))
	})
	c := newTestClient(t, mux, nil, nil)

	pools, err := c.FetchPools(context.Background(), &models.ListPoolsQuery{Limit: 5, Sort: models.SortTVLDesc})
	require.NoError(t, err)
	require.Len(t, pools, 1)

	p := pools[0]
	assert.Equal(t, "pool-vibe", p.PoolID)
	assert.Equal(t, uint32(100), p.LPFeeBps)
	assert.Equal(t, uint32(30), p.HostFeeBps)
	assert.Equal(t, uint32(130), p.TotalFeeBps())
	assert.Equal(t, "500000000", p.Reserves.AssetA.String())
	assert.Equal(t, "50000000000000", p.Reserves.AssetB.String())
	assert.Equal(t, "VIBE", p.AssetB.Ticker)
	assert.Equal(t, "420000.5", p.Volume24h.String())
	assert.Equal(t, "-1.2", p.PriceChange24h.String())
	assert.True(t, p.CurrentPrice.IsZero())
	assert.Equal(t, 2025, p.CreatedAt.Year())

	known, ok := c.KnownPool("pool-vibe")
	require.True(t, ok)
	assert.Equal(t, p.Reserves.AssetB, known.Reserves.AssetB)
}

func TestClient_FetchPools_RejectsBadReserves(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pools":[{"lpPublicKey":"p","assetAReserve":"-5"}]}`))
	})
	c := newTestClient(t, mux, nil, nil)

	_, err := c.FetchPools(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestClient_GetPool_NotFoundIsNil(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	c := newTestClient(t, mux, nil, nil)

	p, err := c.GetPool(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestClient_Unauthorized_ClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})
	auth := &fakeTokens{token: "stale"}
	c := newTestClient(t, mux, auth, nil)

	_, err := c.FetchPools(context.Background(), nil)
	require.ErrorIs(t, err, ErrAuthRequired)
	assert.Equal(t, "Authentication required - please reconnect your wallet", err.Error())
	assert.Equal(t, int32(1), auth.cleared.Load())
}

func TestClient_SimulateSwap_Remote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/swaps/simulate", func(w http.ResponseWriter, r *http.Request) {
		var req apiSimulateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1000000", req.AmountIn)
		assert.Equal(t, "pool-vibe", req.PoolID)
		_, _ = w.Write([]byte(`{"amountOut":"98000000000","executionPrice":"9800000","priceImpactPct":"1.5","feeAmount":"13000"}`))
	})
	c := newTestClient(t, mux, nil, nil)

	q, err := c.SimulateSwap(context.Background(), vibeParams(t))
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSourceRemote, q.Source)
	assert.Equal(t, "98000000000", q.ExpectedAmountOut.String())
	assert.Equal(t, "97020000000", q.MinimumAmountOut.String())
	assert.Equal(t, int64(150), q.PriceImpactBps)
	assert.Equal(t, "13000", q.FeeAmount.String())
	assert.Equal(t, "9800000", q.ExecutionPrice.String())
	assert.Equal(t, []string{constants.BTCAssetPubkey, "btkn1vibe"}, q.Route)

	sims, fallbacks := c.Stats()
	assert.Equal(t, int64(1), sims)
	assert.Equal(t, int64(0), fallbacks)
}

func TestClient_SimulateSwap_FallsBackOnServerError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pools":[` + vibePoolJSON + `]}`))
	})
	mux.HandleFunc("/v1/swaps/simulate", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c := newTestClient(t, mux, nil, nil)

	_, err := c.FetchPools(context.Background(), nil)
	require.NoError(t, err)

	q, err := c.SimulateSwap(context.Background(), vibeParams(t))
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, models.QuoteSourceLocal, q.Source)
	assert.Equal(t, []string{constants.BTCAssetPubkey, "btkn1vibe"}, q.Route)

	// Same numbers as applying the constant-product formulas by hand.
	assert.Equal(t, "98505550044", q.ExpectedAmountOut.String())
	assert.Equal(t, "97520494543", q.MinimumAmountOut.String())
	assert.Equal(t, "13000", q.FeeAmount.String())
	assert.Equal(t, int64(149), q.PriceImpactBps)
	assert.InDelta(t, 1.4944, q.PriceImpactPct, 0.0001)
	assert.Equal(t, "9850555.0044", q.ExecutionPrice.String())

	_, fallbacks := c.Stats()
	assert.Equal(t, int64(1), fallbacks)
}

func TestClient_SimulateSwap_FallbackFetchesUnknownPool(t *testing.T) {
	var poolCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools/pool-vibe", func(w http.ResponseWriter, r *http.Request) {
		poolCalls.Add(1)
		_, _ = w.Write([]byte(vibePoolJSON))
	})
	mux.HandleFunc("/v1/swaps/simulate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	c := newTestClient(t, mux, nil, nil)

	q, err := c.SimulateSwap(context.Background(), vibeParams(t))
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSourceLocal, q.Source)
	assert.Equal(t, int32(1), poolCalls.Load())
}

func TestClient_SimulateSwap_NoReserves(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/swaps/simulate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux, nil, nil)

	_, err := c.SimulateSwap(context.Background(), vibeParams(t))
	assert.ErrorIs(t, err, ErrNoReserves)
}

func TestClient_SimulateSwap_InvalidParams(t *testing.T) {
	c, err := NewClient(Config{UseMockData: true, Logger: quietLogger()})
	require.NoError(t, err)

	p := vibeParams(t)
	p.AmountIn = big.NewInt(0)
	_, err = c.SimulateSwap(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidParams)

	p = vibeParams(t)
	p.AssetOutAddress = p.AssetInAddress
	_, err = c.SimulateSwap(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestLocalQuote_ReverseDirection(t *testing.T) {
	pool := MockPools()[1]
	q, err := LocalQuote(&pool, models.SwapParams{
		PoolID:          pool.PoolID,
		AssetInAddress:  pool.AssetBAddress,
		AssetOutAddress: pool.AssetAAddress,
		AmountIn:        big.NewInt(100_000_000_000),
		SlippageBps:     50,
	})
	require.NoError(t, err)
	// 100000000000*9870/10000 = 98700000000; 98700000000*500000000/50098700000000 = 985055
	assert.Equal(t, "985055", q.ExpectedAmountOut.String())
	assert.Equal(t, "980129", q.MinimumAmountOut.String())

	_, err = LocalQuote(&pool, models.SwapParams{
		PoolID: pool.PoolID, AssetInAddress: "btkn1other", AssetOutAddress: pool.AssetAAddress,
		AmountIn: big.NewInt(1),
	})
	assert.ErrorIs(t, err, ErrAssetNotInPool)
}

func TestClient_ExecuteSwap(t *testing.T) {
	okSim := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"amountOut":"98000000000","priceImpactPct":"1.5"}`))
	}

	t.Run("success uses quoted minimum", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/swaps/simulate", okSim)
		fw := &fakeWallet{res: &wallet.ExecuteSwapResult{TxID: "tx-1", OutboundTransferID: "out-1", AmountOut: "98100000000"}}
		c := newTestClient(t, mux, nil, fw)

		res := c.ExecuteSwap(context.Background(), vibeParams(t))
		require.True(t, res.Success, res.Error)
		assert.Equal(t, "tx-1", res.TxID)
		assert.Equal(t, "out-1", res.OutboundTransferID)
		assert.Equal(t, "98100000000", res.AmountOut.String())

		assert.Equal(t, "97020000000", fw.req.MinAmountOut)
		assert.Equal(t, "1000000", fw.req.AmountIn)
		assert.Equal(t, uint32(100), fw.req.MaxSlippageBps)
		assert.Equal(t, "02abc", fw.req.IntegratorPublicKey)
		assert.Zero(t, fw.req.TotalIntegratorFeeRateBps)
	})

	t.Run("expected amount when wallet omits it", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/swaps/simulate", okSim)
		c := newTestClient(t, mux, nil, &fakeWallet{res: &wallet.ExecuteSwapResult{TxID: "tx-2"}})

		res := c.ExecuteSwap(context.Background(), vibeParams(t))
		require.True(t, res.Success)
		assert.Equal(t, "98000000000", res.AmountOut.String())
	})

	t.Run("user cancel", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/swaps/simulate", okSim)
		c := newTestClient(t, mux, nil, &fakeWallet{err: wallet.ErrUserCanceled})

		res := c.ExecuteSwap(context.Background(), vibeParams(t))
		assert.False(t, res.Success)
		assert.Equal(t, "Transaction cancelled by user", res.Error)
	})

	t.Run("empty wallet error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/v1/swaps/simulate", okSim)
		c := newTestClient(t, mux, nil, &fakeWallet{err: errors.New("")})

		res := c.ExecuteSwap(context.Background(), vibeParams(t))
		assert.Equal(t, "Swap failed", res.Error)
	})

	t.Run("no wallet", func(t *testing.T) {
		c := newTestClient(t, http.NewServeMux(), nil, nil)
		res := c.ExecuteSwap(context.Background(), vibeParams(t))
		assert.False(t, res.Success)
		assert.Equal(t, wallet.ErrWalletNotFound.Error(), res.Error)
	})

	t.Run("missing user key", func(t *testing.T) {
		c := newTestClient(t, http.NewServeMux(), nil, &fakeWallet{})
		p := vibeParams(t)
		p.UserPublicKey = ""
		res := c.ExecuteSwap(context.Background(), p)
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "userPublicKey")
	})
}

func TestClient_GetSwapHistory(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pools/pool-vibe/swaps", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"swaps":[{"id":"s1","poolLpPublicKey":"pool-vibe","amountIn":"1000","amountOut":"99","feePaid":"13","price":"0.099","createdAt":"2025-03-01T00:00:00Z"}],"totalCount":0}`))
	})
	c := newTestClient(t, mux, nil, nil)

	h, err := c.GetSwapHistory(context.Background(), models.SwapHistoryQuery{PoolID: "pool-vibe", Limit: 20})
	require.NoError(t, err)
	require.Len(t, h.Swaps, 1)
	assert.Equal(t, 1, h.TotalCount)
	assert.Equal(t, "pool-vibe", h.Swaps[0].PoolID)
	assert.Equal(t, "99", h.Swaps[0].AmountOut.String())
	assert.Equal(t, "13", h.Swaps[0].FeePaid.String())
}

func TestClient_MockMode(t *testing.T) {
	c, err := NewClient(Config{UseMockData: true, Logger: quietLogger()})
	require.NoError(t, err)

	pools, err := c.FetchPools(context.Background(), &models.ListPoolsQuery{Sort: models.SortVolumeDesc})
	require.NoError(t, err)
	require.Len(t, pools, 3)
	assert.Equal(t, "pool-btc-usdt-001", pools[0].PoolID)

	filtered, err := c.FetchPools(context.Background(), &models.ListPoolsQuery{AssetBAddress: "btkn1mockfspk"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	p, err := c.GetPool(context.Background(), "pool-btc-vibe-001")
	require.NoError(t, err)
	require.NotNil(t, p)

	q, err := c.SimulateSwap(context.Background(), models.SwapParams{
		PoolID:          p.PoolID,
		AssetInAddress:  p.AssetAAddress,
		AssetOutAddress: p.AssetBAddress,
		AmountIn:        big.NewInt(1_000_000),
		SlippageBps:     100,
	})
	require.NoError(t, err)
	assert.Equal(t, models.QuoteSourceLocal, q.Source)
	assert.Equal(t, "98505550044", q.ExpectedAmountOut.String())

	h, err := c.GetSwapHistory(context.Background(), models.SwapHistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, h.Swaps)
}
