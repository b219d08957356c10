package flashnet

import (
	"math/big"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

var mockBTC = models.Token{PublicKey: constants.BTCAssetPubkey, Name: "Bitcoin", Ticker: "BTC", Decimals: 8}

type mockPool struct {
	id       string
	token    models.Token
	reserveA int64
	reserveB int64
	lpFee    uint32
	hostFee  uint32
	change   string
	tvl      string
	volume   string
}

var mockPools = []mockPool{
	{
		id:       "pool-btc-usdt-001",
		token:    models.Token{PublicKey: "btkn1mockusdt", Name: "Tether USD", Ticker: "USDT", Decimals: 6},
		reserveA: 1_050_000_000,
		reserveB: 42_000_000_000_000,
		lpFee:    30,
		hostFee:  10,
		change:   "2.5",
		tvl:      "84000000",
		volume:   "1250000",
	},
	{
		id:       "pool-btc-vibe-001",
		token:    models.Token{PublicKey: "btkn1mockvibe", Name: "Vibe", Ticker: "VIBE", Decimals: 6},
		reserveA: 500_000_000,
		reserveB: 50_000_000_000_000,
		lpFee:    100,
		hostFee:  30,
		change:   "-1.2",
		tvl:      "100000000",
		volume:   "420000",
	},
	{
		id:       "pool-btc-fspk-001",
		token:    models.Token{PublicKey: "btkn1mockfspk", Name: "FlashSpark", Ticker: "FSPK", Decimals: 8},
		reserveA: 250_000_000,
		reserveB: 100_000_000_000,
		lpFee:    50,
		hostFee:  15,
		change:   "5.8",
		tvl:      "2000",
		volume:   "150",
	},
}

// MockPools returns the built-in development pools. Each call returns fresh
// values so callers may mutate them.
func MockPools() []models.Pool {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pools := make([]models.Pool, 0, len(mockPools))
	for i, m := range mockPools {
		a, b := big.NewInt(m.reserveA), big.NewInt(m.reserveB)
		price := decimal.NewFromBigInt(b, -int32(m.token.Decimals)).
			DivRound(decimal.NewFromBigInt(a, -int32(mockBTC.Decimals)), 8)
		pools = append(pools, models.Pool{
			PoolID:         m.id,
			LPPublicKey:    m.id,
			HostName:       "flashnet",
			AssetAAddress:  mockBTC.PublicKey,
			AssetBAddress:  m.token.PublicKey,
			AssetA:         mockBTC,
			AssetB:         m.token,
			Reserves:       models.Reserves{AssetA: a, AssetB: b},
			LPFeeBps:       m.lpFee,
			HostFeeBps:     m.hostFee,
			CurveType:      models.CurveConstantProduct,
			TVL:            decimal.RequireFromString(m.tvl),
			Volume24h:      decimal.RequireFromString(m.volume),
			PriceChange24h: decimal.RequireFromString(m.change),
			CurrentPrice:   price,
			CreatedAt:      created.Add(time.Duration(i) * 24 * time.Hour),
			UpdatedAt:      created.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	return pools
}

func filterMockPools(q *models.ListPoolsQuery) []models.Pool {
	all := MockPools()
	if q == nil {
		return all
	}

	out := all[:0]
	for _, p := range all {
		if q.AssetAAddress != "" && !p.HasAsset(q.AssetAAddress) {
			continue
		}
		if q.AssetBAddress != "" && !p.HasAsset(q.AssetBAddress) {
			continue
		}
		if floor, err := decimal.NewFromString(q.MinTVL); err == nil && p.TVL.LessThan(floor) {
			continue
		}
		if floor, err := decimal.NewFromString(q.MinVolume24h); err == nil && p.Volume24h.LessThan(floor) {
			continue
		}
		out = append(out, p)
	}

	sortPools(out, q.Sort)

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []models.Pool{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

func sortPools(pools []models.Pool, by models.PoolSort) {
	var less func(a, b models.Pool) bool
	switch by {
	case models.SortTVLDesc:
		less = func(a, b models.Pool) bool { return a.TVL.GreaterThan(b.TVL) }
	case models.SortTVLAsc:
		less = func(a, b models.Pool) bool { return a.TVL.LessThan(b.TVL) }
	case models.SortVolumeDesc:
		less = func(a, b models.Pool) bool { return a.Volume24h.GreaterThan(b.Volume24h) }
	case models.SortVolumeAsc:
		less = func(a, b models.Pool) bool { return a.Volume24h.LessThan(b.Volume24h) }
	case models.SortCreatedAtDesc:
		less = func(a, b models.Pool) bool { return a.CreatedAt.After(b.CreatedAt) }
	case models.SortCreatedAtAsc:
		less = func(a, b models.Pool) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return
	}
	sort.SliceStable(pools, func(i, j int) bool { return less(pools[i], pools[j]) })
}
