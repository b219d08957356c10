package cache

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/spark-swap/internal/models"
)

const swapsTableDDL = `
	CREATE TABLE IF NOT EXISTS spark_swaps (
		id                   String,
		timestamp            DateTime64(3, 'UTC'),
		pool_id              String,
		user_public_key      String,
		asset_in             String,
		asset_out            String,
		amount_in            String,
		expected_amount_out  String,
		minimum_amount_out   String,
		slippage_bps         UInt32,
		price_impact_bps     Int64,
		quote_source         LowCardinality(String),
		success              Bool,
		tx_id                String,
		outbound_transfer_id String,
		error                String
	) ENGINE = MergeTree
	ORDER BY (pool_id, timestamp)
`

// ClickHouseConfig holds connection settings for the swap journal table.
type ClickHouseConfig struct {
	Addr     string
	Database string
	Username string
	Password string
	Logger   *logrus.Logger
}

type ClickHouseStore struct {
	conn driver.Conn
}

// NewClickHouseStore connects, pings and makes sure spark_swaps exists.
func NewClickHouseStore(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseStore, error) {
	if cfg.Database == "" {
		cfg.Database = "spark"
	}
	if cfg.Username == "" {
		cfg.Username = "default"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, swapsTableDDL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create spark_swaps: %w", err)
	}

	cfg.Logger.WithField("addr", cfg.Addr).Info("Connected to ClickHouse")
	return &ClickHouseStore{conn: conn}, nil
}

func (c *ClickHouseStore) InsertSwap(ctx context.Context, swap *models.SwapEvent) error {
	query := `
		INSERT INTO spark_swaps (
			id, timestamp, pool_id, user_public_key, asset_in, asset_out,
			amount_in, expected_amount_out, minimum_amount_out, slippage_bps,
			price_impact_bps, quote_source, success, tx_id, outbound_transfer_id, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		swap.ID,
		swap.Timestamp,
		swap.PoolID,
		swap.UserPublicKey,
		swap.AssetIn,
		swap.AssetOut,
		swap.AmountIn,
		swap.ExpectedAmountOut,
		swap.MinimumAmountOut,
		swap.SlippageBps,
		swap.PriceImpactBps,
		swap.QuoteSource,
		swap.Success,
		swap.TxID,
		swap.OutboundTransferID,
		swap.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert swap: %w", err)
	}
	return nil
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
