package tokens

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/spark-swap/internal/constants"
)

func TestRegistry_KnownTokens(t *testing.T) {
	r := NewRegistry(Config{Sources: []string{}})

	btc := r.Lookup(constants.BTCAssetPubkey)
	assert.Equal(t, "BTC", btc.Ticker)
	assert.Equal(t, uint8(8), btc.Decimals)
	assert.Equal(t, constants.BTCAssetPubkey, btc.PublicKey)

	alias := r.Lookup("btc")
	assert.Equal(t, "Bitcoin", alias.Name)

	usdb := r.Lookup(USDBAddress)
	assert.Equal(t, "USDB", usdb.Ticker)
	assert.Equal(t, uint8(6), usdb.Decimals)
}

func TestRegistry_Fallback(t *testing.T) {
	r := NewRegistry(Config{Sources: []string{}})

	tok := r.Lookup("btkn1abcdefghijk")
	assert.Equal(t, "Token btkn1abc", tok.Name)
	assert.Equal(t, "BTKN1A", tok.Ticker)
	assert.Equal(t, uint8(8), tok.Decimals)

	_, ok := r.Get("btkn1abcdefghijk")
	assert.False(t, ok)

	short := Fallback("xy")
	assert.Equal(t, "Token xy", short.Name)
	assert.Equal(t, "XY", short.Ticker)
}

func TestRegistry_Refresh(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"tokens":[
			{"address":"btkn1new","name":"New Token","symbol":"NEW","decimals":6,"logoURI":"https://x/new.png"},
			{"address":"btkn1nodec","symbol":"ND"},
			{"address":"","symbol":"SKIP"},
			{"address":"btkn1nosym"}
		]}`))
	}))
	defer good.Close()

	var badCalls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(Config{
		Sources:         []string{good.URL, bad.URL},
		RefreshInterval: time.Minute,
		Now:             func() time.Time { return now },
	})
	before := r.Size()

	loaded := r.Refresh(context.Background())
	assert.Equal(t, 2, loaded)
	assert.Equal(t, before+2, r.Size())
	assert.Equal(t, int32(1), badCalls.Load(), "4xx is not retried")

	tok, ok := r.Get("btkn1new")
	require.True(t, ok)
	assert.Equal(t, "NEW", tok.Ticker)
	assert.Equal(t, uint8(6), tok.Decimals)
	assert.Equal(t, "https://x/new.png", tok.LogoURL)

	nd := r.Lookup("btkn1nodec")
	assert.Equal(t, "ND", nd.Name)
	assert.Equal(t, uint8(8), nd.Decimals)

	// Inside the refresh interval nothing is fetched.
	assert.Equal(t, 0, r.Refresh(context.Background()))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, r.Refresh(context.Background()))
}
