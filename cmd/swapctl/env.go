package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aman-zulfiqar/spark-swap/internal/config"
	"github.com/aman-zulfiqar/spark-swap/internal/flashnet"
	"github.com/aman-zulfiqar/spark-swap/internal/logging"
	"github.com/aman-zulfiqar/spark-swap/internal/market"
	"github.com/aman-zulfiqar/spark-swap/internal/tokens"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
	"github.com/aman-zulfiqar/spark-swap/internal/wallet"
)

// env is what every subcommand shares.
type env struct {
	cfg      *config.Config
	logger   *logrus.Logger
	api      *transport.Client
	registry *tokens.Registry
	flashnet *flashnet.Client
	market   *market.Service
	asJSON   bool
}

func setup(cmd *cobra.Command) (*env, context.Context, context.CancelFunc, error) {
	_ = godotenv.Load() // optional .env in the working directory

	cfg := config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	} else if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if mock, _ := cmd.Flags().GetBool("mock"); mock {
		cfg.UseMockData = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.SetOutput(os.Stderr)

	api := transport.NewClient(transport.Config{
		APIBase:      cfg.FlashnetAPIBase,
		ProxyURL:     cfg.FlashnetProxyURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})
	registry := tokens.NewRegistry(tokens.Config{RefreshInterval: cfg.TokenListRefresh, Logger: logger})

	fc, err := flashnet.NewClient(flashnet.Config{
		API:             api,
		Tokens:          registry,
		SimulateTimeout: cfg.SimulateTimeout,
		UseMockData:     cfg.UseMockData,
		Logger:          logger,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	svc, err := market.NewService(market.Config{Source: fc, TTL: cfg.PoolCacheTTL, Logger: logger})
	if err != nil {
		return nil, nil, nil, err
	}

	asJSON, _ := cmd.Flags().GetBool("json")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signalContext()
	cancel := stop
	if timeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, timeout)
		cancel = func() { tcancel(); stop() }
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		api:      api,
		registry: registry,
		flashnet: fc,
		market:   svc,
		asJSON:   asJSON,
	}, ctx, cancel, nil
}

// walletProvider prefers the JSON-RPC bridge and falls back to a local key.
func (e *env) walletProvider() (wallet.Provider, error) {
	if e.cfg.WalletBridgeURL != "" {
		return wallet.NewBridge(wallet.BridgeConfig{
			URL:          e.cfg.WalletBridgeURL,
			MaxRetries:   e.cfg.MaxRetries,
			RetryBackoff: e.cfg.RetryBackoff,
			Logger:       e.logger,
		})
	}
	if e.cfg.WalletPrivateKey != "" {
		return wallet.NewKeyProvider(e.cfg.WalletPrivateKey)
	}
	return nil, fmt.Errorf("%w: set WALLET_BRIDGE_URL or WALLET_PRIVATE_KEY", wallet.ErrWalletNotFound)
}

// loadTokens pulls the public token lists; metadata falls back to derived
// names when they are unreachable.
func (e *env) loadTokens(ctx context.Context) {
	if e.cfg.UseMockData {
		return
	}
	lctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	e.registry.Refresh(lctx)
}

func (e *env) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
