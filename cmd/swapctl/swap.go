package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/spark-swap/internal/amount"
	"github.com/aman-zulfiqar/spark-swap/internal/auth"
	"github.com/aman-zulfiqar/spark-swap/internal/cache"
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
	"github.com/aman-zulfiqar/spark-swap/internal/swap"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

type swapFlags struct {
	poolID   string
	amount   string
	assetIn  string
	slippage uint32
}

func readSwapFlags(cmd *cobra.Command) swapFlags {
	var f swapFlags
	f.poolID, _ = cmd.Flags().GetString("pool")
	f.amount, _ = cmd.Flags().GetString("amount")
	f.assetIn, _ = cmd.Flags().GetString("asset-in")
	f.slippage, _ = cmd.Flags().GetUint32("slippage")
	return f
}

// resolveDirection loads the pool and works out which asset is sold.
func (e *env) resolveDirection(ctx context.Context, f swapFlags) (*models.Pool, swap.Direction, error) {
	pool, err := e.market.Pool(ctx, f.poolID)
	if err != nil {
		return nil, "", fmt.Errorf("load pool: %w", err)
	}
	if pool == nil {
		return nil, "", fmt.Errorf("pool %s not found", f.poolID)
	}

	assetIn := f.assetIn
	if strings.EqualFold(assetIn, constants.BTCAlias) {
		assetIn = constants.BTCAssetPubkey
	}
	switch assetIn {
	case "", pool.AssetAAddress:
		return pool, swap.AToB, nil
	case pool.AssetBAddress:
		return pool, swap.BToA, nil
	}
	return nil, "", fmt.Errorf("asset %s is not in pool %s", assetIn, pool.PoolID)
}

func runQuote(cmd *cobra.Command, _ []string) error {
	e, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	f := readSwapFlags(cmd)
	e.loadTokens(ctx)
	pool, dir, err := e.resolveDirection(ctx, f)
	if err != nil {
		return err
	}
	in, out, inAddr, outAddr := swap.Tokens(pool, dir)

	amountIn, err := amount.Parse(f.amount, in.Decimals)
	if err != nil {
		return err
	}
	if amountIn.Sign() <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	quote, err := e.flashnet.SimulateSwap(ctx, models.SwapParams{
		PoolID:          pool.PoolID,
		AssetInAddress:  inAddr,
		AssetOutAddress: outAddr,
		AmountIn:        amountIn,
		SlippageBps:     f.slippage,
	})
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}
	if e.asJSON {
		return e.printJSON(cmd, quote)
	}
	return printQuote(cmd, in, out, amountIn, quote)
}

func printQuote(cmd *cobra.Command, in, out models.Token, amountIn *big.Int, q *models.SwapQuote) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Sell\t%s %s\n", amount.Format(amountIn, in.Decimals), in.Ticker)
	fmt.Fprintf(w, "Expected\t%s %s\n", amount.Format(q.ExpectedAmountOut, out.Decimals), out.Ticker)
	fmt.Fprintf(w, "Minimum\t%s %s\n", amount.Format(q.MinimumAmountOut, out.Decimals), out.Ticker)
	fmt.Fprintf(w, "Price impact\t%.2f%%\n", q.PriceImpactPct)
	fmt.Fprintf(w, "Fee\t%s %s\n", amount.Format(q.FeeAmount, in.Decimals), in.Ticker)
	fmt.Fprintf(w, "Price\t%s %s per %s\n", q.ExecutionPrice.String(), out.Ticker, in.Ticker)
	fmt.Fprintf(w, "Source\t%s\n", q.Source)
	return w.Flush()
}

func runSwap(cmd *cobra.Command, _ []string) error {
	e, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	f := readSwapFlags(cmd)
	yes, _ := cmd.Flags().GetBool("yes")
	quoteTimeout, _ := cmd.Flags().GetDuration("quote-timeout")

	provider, err := e.walletProvider()
	if err != nil {
		return err
	}
	wc := wallet.NewClient(provider)

	authMgr := auth.NewManager(auth.Config{
		API:           e.api,
		Lifetime:      e.cfg.AuthSessionLifetime,
		RefreshBuffer: e.cfg.AuthRefreshBuffer,
		Logger:        e.logger,
	})
	var authenticator swap.Authenticator
	if !e.cfg.UseMockData {
		authenticator = authMgr
	}

	var journal swap.Journal
	if e.cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: e.cfg.RedisAddr})
		defer rclient.Close()
		journal = cache.NewJournal(nil, cache.NewPubSubManager(rclient, e.logger), e.logger)
	}

	changed := make(chan struct{}, 1)
	orch, err := swap.NewOrchestrator(swap.Config{
		Wallet:  wc,
		Auth:    authenticator,
		Swapper: e.flashnet.WithSession(authMgr, wc),
		Market:  e.market,
		Journal: journal,
		Risk: swap.RiskConfig{
			DefaultSlippageBps: uint32(e.cfg.DefaultSlippageBps),
			MaxSlippageBps:     uint32(e.cfg.MaxSlippageBps),
			MaxPriceImpactBps:  int64(e.cfg.MaxPriceImpactBps),
		},
		OnChange: func(swap.Snapshot) {
			select {
			case changed <- struct{}{}:
			default:
			}
		},
		Logger: e.logger,
	})
	if err != nil {
		return err
	}
	defer orch.Close()

	e.loadTokens(ctx)
	_, dir, err := e.resolveDirection(ctx, f)
	if err != nil {
		return err
	}

	if err := orch.Connect(ctx); err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	if err := orch.SelectPool(ctx, f.poolID); err != nil {
		return fmt.Errorf("select pool: %w", err)
	}
	if dir == swap.BToA {
		if err := orch.ToggleDirection(); err != nil {
			return err
		}
	}
	if err := orch.SetSlippage(f.slippage); err != nil {
		return err
	}
	if err := orch.SetAmount(f.amount); err != nil {
		return err
	}

	qctx, qcancel := context.WithTimeout(ctx, quoteTimeout)
	defer qcancel()
	snap, err := waitForQuote(qctx, orch, changed)
	if err != nil {
		return err
	}

	if !e.asJSON {
		fmt.Fprintf(cmd.OutOrStdout(), "Wallet %s\n", snap.Account.PublicKey)
		amountIn, err := amount.Parse(snap.Amount, snap.TokenIn.Decimals)
		if err != nil {
			return err
		}
		if err := printQuote(cmd, *snap.TokenIn, *snap.TokenOut, amountIn, snap.Quote); err != nil {
			return err
		}
	}
	if snap.Risk != nil && !snap.Risk.Allowed {
		return fmt.Errorf("%w: %s", swap.ErrRiskRejected, snap.Risk.Reason)
	}
	if !yes && !confirm(cmd, "Execute swap?") {
		return errors.New("aborted")
	}

	res, err := orch.Swap(ctx)
	if err != nil {
		return err
	}
	if e.asJSON {
		return e.printJSON(cmd, res)
	}
	if !res.Success {
		return fmt.Errorf("swap failed: %s", res.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Swap submitted: tx %s, received %s %s\n",
		res.TxID, amount.Format(res.AmountOut, snap.TokenOut.Decimals), snap.TokenOut.Ticker)
	return nil
}

// waitForQuote blocks until the session holds a quote for the current
// inputs or the quote attempt failed.
func waitForQuote(ctx context.Context, orch *swap.Orchestrator, changed <-chan struct{}) (swap.Snapshot, error) {
	for {
		snap := orch.Snapshot()
		switch {
		case snap.State == swap.StateReadyToSwap && snap.Quote != nil:
			return snap, nil
		case snap.QuoteError != "":
			return snap, fmt.Errorf("quote: %s", snap.QuoteError)
		case snap.State == swap.StatePoolSelected && snap.Amount != "":
			// Amount did not parse to a positive value.
			return snap, fmt.Errorf("invalid amount %q", snap.Amount)
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return snap, fmt.Errorf("waiting for quote: %w", ctx.Err())
		}
	}
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func runBalance(cmd *cobra.Command, _ []string) error {
	e, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	provider, err := e.walletProvider()
	if err != nil {
		return err
	}
	wc := wallet.NewClient(provider)

	acct, err := wc.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	bal, err := wc.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	if e.asJSON {
		return e.printJSON(cmd, map[string]any{"account": acct, "balance": bal})
	}
	sats, err := amount.Parse(bal.Balance, 0)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s BTC\n", acct.PublicKey, amount.Format(sats, 8))
	return nil
}
