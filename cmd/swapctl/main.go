package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "swapctl",
		Short:        "Flashnet AMM operator CLI",
		SilenceUsage: true,
	}

	root.PersistentFlags().Bool("mock", false, "use built-in mock pools instead of the API")
	root.PersistentFlags().Bool("json", false, "print JSON instead of tables")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	root.PersistentFlags().Duration("timeout", 30*time.Second, "overall command timeout")

	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "List pools",
		RunE:  runPools,
	}
	poolsCmd.Flags().Int("limit", 20, "page size")
	poolsCmd.Flags().Int("offset", 0, "page offset")
	poolsCmd.Flags().String("sort", "TVL_DESC", "TVL_DESC, TVL_ASC, VOLUME24H_DESC, VOLUME24H_ASC, CREATED_AT_DESC, CREATED_AT_ASC")
	poolsCmd.Flags().String("min-tvl", "", "minimum TVL")
	poolsCmd.Flags().String("asset", "", "only pools containing this asset address as asset B")
	root.AddCommand(poolsCmd)

	moversCmd := &cobra.Command{
		Use:   "movers",
		Short: "Show top gainers and losers by 24h price change",
		RunE:  runMovers,
	}
	moversCmd.Flags().Int("limit", 5, "entries per side")
	root.AddCommand(moversCmd)

	historyCmd := &cobra.Command{
		Use:   "history [pool-id]",
		Short: "Show recent swaps, for one pool or globally",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistory,
	}
	historyCmd.Flags().Int("limit", 20, "page size")
	historyCmd.Flags().Int("offset", 0, "page offset")
	historyCmd.Flags().String("asset", "", "filter by asset address")
	root.AddCommand(historyCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap",
		RunE:  runQuote,
	}
	addSwapFlags(quoteCmd)
	root.AddCommand(quoteCmd)

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote and execute a swap through the configured wallet",
		RunE:  runSwap,
	}
	addSwapFlags(swapCmd)
	swapCmd.Flags().Bool("yes", false, "execute without confirmation")
	swapCmd.Flags().Duration("quote-timeout", 15*time.Second, "how long to wait for a quote")
	root.AddCommand(swapCmd)

	balanceCmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the connected wallet and its balance",
		RunE:  runBalance,
	}
	root.AddCommand(balanceCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream executed swaps from Redis pub/sub",
		RunE:  runWatch,
	}
	watchCmd.Flags().String("pool", "", "only swaps for this pool")
	watchCmd.Flags().Bool("failed", false, "only failed swaps")
	root.AddCommand(watchCmd)

	return root
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool id (required)")
	cmd.Flags().String("amount", "", "amount to sell in display units, e.g. 0.01 (required)")
	cmd.Flags().String("asset-in", "", "asset to sell; defaults to the pool's asset A, \"btc\" accepted")
	cmd.Flags().Uint32("slippage", 100, "slippage tolerance in basis points")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("amount")
}
