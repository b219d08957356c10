package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/auth"
	"github.com/aman-zulfiqar/spark-swap/internal/cache"
	"github.com/aman-zulfiqar/spark-swap/internal/config"
	"github.com/aman-zulfiqar/spark-swap/internal/flashnet"
	"github.com/aman-zulfiqar/spark-swap/internal/logging"
	"github.com/aman-zulfiqar/spark-swap/internal/market"
	"github.com/aman-zulfiqar/spark-swap/internal/server"
	"github.com/aman-zulfiqar/spark-swap/internal/swap"
	"github.com/aman-zulfiqar/spark-swap/internal/tokens"
	"github.com/aman-zulfiqar/spark-swap/internal/transport"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	// Get the project root directory (where go.mod is)
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main is the entry point for the API server
// It serves the Flashnet proxy, the cached market API and live swap sessions
func main() {
	// load .env BEFORE anything reads os.Getenv
	loadEnv(logging.New("info", "text"))

	// Load and validate configuration from environment variables
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown (Ctrl+C, SIGTERM)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	api := transport.NewClient(transport.Config{
		APIBase:      cfg.FlashnetAPIBase,
		ProxyURL:     cfg.FlashnetProxyURL,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	registry := tokens.NewRegistry(tokens.Config{
		RefreshInterval: cfg.TokenListRefresh,
		Logger:          logger,
	})
	go registry.Run(ctx)

	fc, err := flashnet.NewClient(flashnet.Config{
		API:             api,
		Tokens:          registry,
		SimulateTimeout: cfg.SimulateTimeout,
		UseMockData:     cfg.UseMockData,
		Logger:          logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create flashnet client")
	}

	// Redis backs the market cache and swap pub/sub when configured
	var store cache.Store = cache.NewMemoryStore()
	var publisher cache.SwapPublisher
	if cfg.RedisAddr != "" {
		rclient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Fatal("failed to connect to Redis")
		}
		defer rclient.Close()

		rs, err := cache.NewRedisStore(rclient)
		if err != nil {
			logger.WithError(err).Fatal("failed to create redis store")
		}
		store = rs
		publisher = cache.NewPubSubManager(rclient, logger)
	}

	var sink cache.SwapSink
	if cfg.ClickHouseAddr != "" {
		ch, err := cache.NewClickHouseStore(ctx, cache.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to ClickHouse")
		}
		defer ch.Close()
		sink = ch
	}

	var journal swap.Journal
	if sink != nil || publisher != nil {
		journal = cache.NewJournal(sink, publisher, logger)
	}

	svc, err := market.NewService(market.Config{
		Source:          fc,
		Store:           store,
		TTL:             cfg.PoolCacheTTL,
		RefreshInterval: cfg.PoolRefreshInterval,
		Logger:          logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create market service")
	}
	go svc.Run(ctx)

	// Mock mode has no upstream to authenticate against
	var authAPI auth.API
	if !cfg.UseMockData {
		authAPI = api
	}

	sessions, err := server.NewSessions(server.SessionsConfig{
		Flashnet: fc,
		AuthAPI:  authAPI,
		Market:   svc,
		Journal:  journal,
		Risk: swap.RiskConfig{
			DefaultSlippageBps: uint32(cfg.DefaultSlippageBps),
			MaxSlippageBps:     uint32(cfg.MaxSlippageBps),
			MaxPriceImpactBps:  int64(cfg.MaxPriceImpactBps),
		},
		Debounce:        cfg.QuoteDebounce,
		SessionLifetime: cfg.AuthSessionLifetime,
		RefreshBuffer:   cfg.AuthRefreshBuffer,
		Logger:          logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create session handler")
	}

	// Create handlers with all dependencies injected
	h := &server.Handlers{
		Market:   svc,
		Quoter:   fc,
		Tokens:   registry,
		MockData: cfg.UseMockData,
		DevMode:  cfg.DevMode,
		Logger:   logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Proxy: server.NewProxy(server.ProxyConfig{
			Upstream: cfg.FlashnetAPIBase,
			Timeout:  cfg.HTTPTimeout,
			Logger:   logger,
		}),
		Sessions: sessions,
		Config: server.ServerConfig{
			Addr:           cfg.APIAddr,
			DevMode:        cfg.DevMode,
			APIKey:         cfg.APIKey,
			ProxyRateLimit: cfg.ProxyRateLimit,
			ProxyRateBurst: cfg.ProxyRateBurst,
		},
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create http server")
	}

	// Setup graceful shutdown in a separate goroutine
	go func() {
		<-sigCh // Wait for shutdown signal
		logger.Info("shutting down")
		cancel()
		_ = srv.Shutdown(context.Background())
	}()

	logger.WithFields(logrus.Fields{
		"addr":     cfg.APIAddr,
		"mockData": cfg.UseMockData,
		"redis":    cfg.RedisAddr != "",
		"journal":  journal != nil,
	}).Info("api server starting")
	if err := srv.Start(); err != nil {
		// ErrServerClosed is expected during graceful shutdown
		if !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("api server failed")
		}
	}

	// Wait for server to be fully shut down
	if err := srv.WaitClosed(context.Background()); err != nil {
		fmt.Println(err)
	}

	sims, fallbacks := fc.Stats()
	logger.WithFields(logrus.Fields{"simulations": sims, "localFallbacks": fallbacks}).Info("stopped")
}
