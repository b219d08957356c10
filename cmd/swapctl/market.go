package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/spark-swap/internal/amount"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

func runPools(cmd *cobra.Command, _ []string) error {
	e, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	sort, _ := cmd.Flags().GetString("sort")
	minTVL, _ := cmd.Flags().GetString("min-tvl")
	asset, _ := cmd.Flags().GetString("asset")

	e.loadTokens(ctx)
	pools, err := e.market.Pools(ctx, &models.ListPoolsQuery{
		Limit:         limit,
		Offset:        offset,
		Sort:          models.PoolSort(sort),
		MinTVL:        minTVL,
		AssetBAddress: asset,
	})
	if err != nil {
		return fmt.Errorf("list pools: %w", err)
	}
	if e.asJSON {
		return e.printJSON(cmd, pools)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tPAIR\tRESERVE A\tRESERVE B\tFEE BPS\tTVL\tVOL 24H\tCHANGE 24H")
	for _, p := range pools {
		fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\t%d\t%s\t%s\t%s%%\n",
			p.PoolID,
			p.AssetA.Ticker, p.AssetB.Ticker,
			amount.Format(p.Reserves.AssetA, p.AssetA.Decimals),
			amount.Format(p.Reserves.AssetB, p.AssetB.Decimals),
			p.TotalFeeBps(),
			p.TVL.StringFixed(2),
			p.Volume24h.StringFixed(2),
			p.PriceChange24h.StringFixed(2),
		)
	}
	return w.Flush()
}

func runMovers(cmd *cobra.Command, _ []string) error {
	e, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	limit, _ := cmd.Flags().GetInt("limit")
	e.loadTokens(ctx)
	m, err := e.market.TopMovers(ctx, limit)
	if err != nil {
		return fmt.Errorf("rank pools: %w", err)
	}
	if e.asJSON {
		return e.printJSON(cmd, m)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SIDE\tPOOL\tPAIR\tCHANGE 24H")
	for _, side := range []struct {
		name  string
		items []models.TopMover
	}{{"gainer", m.Gainers}, {"loser", m.Losers}} {
		for _, mv := range side.items {
			fmt.Fprintf(w, "%s\t%s\t%s/%s\t%s%%\n",
				side.name, mv.Pool.PoolID, mv.Pool.AssetA.Ticker, mv.Pool.AssetB.Ticker, mv.Change.StringFixed(2))
		}
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, ctx, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cancel()

	q := models.SwapHistoryQuery{}
	if len(args) == 1 {
		q.PoolID = args[0]
	}
	q.Limit, _ = cmd.Flags().GetInt("limit")
	q.Offset, _ = cmd.Flags().GetInt("offset")
	q.AssetAddress, _ = cmd.Flags().GetString("asset")

	hist, err := e.market.SwapHistory(ctx, q)
	if err != nil {
		return fmt.Errorf("swap history: %w", err)
	}
	if e.asJSON {
		return e.printJSON(cmd, hist)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tPOOL\tIN\tOUT\tPRICE\tSWAPPER")
	for _, s := range hist.Swaps {
		in := e.registry.Lookup(s.AssetInAddress)
		out := e.registry.Lookup(s.AssetOutAddress)
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%s\t%s\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"),
			s.PoolID,
			amount.Format(s.AmountIn, in.Decimals), in.Ticker,
			amount.Format(s.AmountOut, out.Decimals), out.Ticker,
			s.Price.String(),
			s.SwapperPublicKey,
		)
	}
	fmt.Fprintf(w, "\n%d of %d swaps\n", len(hist.Swaps), hist.TotalCount)
	return w.Flush()
}
