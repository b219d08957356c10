package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("WALLET_BRIDGE_URL", "")
	t.Setenv("WALLET_PRIVATE_KEY", "")
	t.Setenv("REDIS_ADDR", "")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPoolsCommand(t *testing.T) {
	out, err := run(t, "pools", "--mock", "--json", "--sort", "VOLUME24H_DESC")
	require.NoError(t, err)

	var pools []models.Pool
	require.NoError(t, json.Unmarshal([]byte(out), &pools))
	require.Len(t, pools, 3)
	assert.Equal(t, "pool-btc-usdt-001", pools[0].PoolID)

	table, err := run(t, "pools", "--mock")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(table, "POOL"))
	assert.Contains(t, table, "BTC/VIBE")
}

func TestQuoteCommand(t *testing.T) {
	out, err := run(t, "quote", "--mock", "--json", "--pool", "pool-btc-vibe-001", "--amount", "0.01")
	require.NoError(t, err)

	var q models.SwapQuote
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, "98505550044", q.ExpectedAmountOut.String())
	assert.Equal(t, "97520494543", q.MinimumAmountOut.String())

	table, err := run(t, "quote", "--mock", "--pool", "pool-btc-vibe-001", "--asset-in", "btc", "--amount", "0.01")
	require.NoError(t, err)
	assert.Contains(t, table, "98505.550044 VIBE")
	assert.Contains(t, table, "1.49%")

	_, err = run(t, "quote", "--mock", "--pool", "pool-btc-vibe-001", "--asset-in", "btkn1other", "--amount", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not in pool")
}

func TestMoversCommand(t *testing.T) {
	out, err := run(t, "movers", "--mock", "--json", "--limit", "1")
	require.NoError(t, err)

	var m models.TopMovers
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	require.Len(t, m.Gainers, 1)
	assert.Equal(t, "pool-btc-fspk-001", m.Gainers[0].Pool.PoolID)
}

func TestSwapWithLocalKey(t *testing.T) {
	t.Setenv("WALLET_BRIDGE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("WALLET_PRIVATE_KEY", strings.Repeat("11", 32))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"swap", "--mock", "--yes", "--pool", "pool-btc-vibe-001", "--amount", "0.01"})
	err := root.Execute()

	// The local key signs but cannot execute swaps; the failure comes back
	// from the wallet after a quote was shown.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "swap failed")
	assert.Contains(t, out.String(), "98505.550044 VIBE")
}

func TestSwapNeedsWallet(t *testing.T) {
	_, err := run(t, "swap", "--mock", "--yes", "--pool", "pool-btc-vibe-001", "--amount", "0.01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WALLET_BRIDGE_URL")
}
