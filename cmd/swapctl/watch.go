package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/spark-swap/internal/amount"
	"github.com/aman-zulfiqar/spark-swap/internal/cache"
	"github.com/aman-zulfiqar/spark-swap/internal/constants"
	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	e, _, cancel, err := setup(cmd)
	if err != nil {
		return err
	}
	cancel()

	if e.cfg.RedisAddr == "" {
		return errors.New("watch needs REDIS_ADDR")
	}

	// Streams until interrupted; --timeout does not apply.
	ctx, stop := signalContext()
	defer stop()

	rclient := redis.NewClient(&redis.Options{Addr: e.cfg.RedisAddr})
	defer rclient.Close()
	if err := rclient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	channel := constants.PubSubChannelSwaps
	if pool, _ := cmd.Flags().GetString("pool"); pool != "" {
		channel = constants.PubSubChannelPoolPrefix + pool
	}
	if failed, _ := cmd.Flags().GetBool("failed"); failed {
		channel = constants.PubSubChannelSwapsFailed
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s\n", channel)

	pubsub := cache.NewPubSubManager(rclient, e.logger)
	err = pubsub.Subscribe(ctx, channel, func(s *models.SwapEvent) {
		if e.asJSON {
			_ = e.printJSON(cmd, s)
			return
		}
		in := e.registry.Lookup(s.AssetIn)
		outTok := e.registry.Lookup(s.AssetOut)
		status := "ok"
		if !s.Success {
			status = "FAILED " + s.Error
		}
		fmt.Fprintf(out, "%s  %s  %s %s -> %s %s  %s\n",
			s.Timestamp.Format("15:04:05"),
			s.PoolID,
			formatBase(s.AmountIn, in.Decimals), in.Ticker,
			formatBase(s.ExpectedAmountOut, outTok.Decimals), outTok.Ticker,
			status,
		)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// formatBase renders a base-unit string from the journal.
func formatBase(v string, decimals uint8) string {
	n, err := amount.Parse(v, 0)
	if err != nil {
		return v
	}
	return amount.Format(n, decimals)
}
