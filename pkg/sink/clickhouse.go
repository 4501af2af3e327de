package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/itohio/goscale/pkg/config"
	"github.com/itohio/goscale/pkg/scale"
)

const createTable = `
CREATE TABLE IF NOT EXISTS %s (
	timestamp DateTime64(3),
	weight    Int32,
	status    LowCardinality(String)
) ENGINE = MergeTree()
ORDER BY timestamp`

// ClickHouse records results in batches.
type ClickHouse struct {
	conn      driver.Conn
	table     string
	batchSize int
	log       *slog.Logger

	mu      sync.Mutex
	pending []scale.Result
	insert  func(ctx context.Context, rows []scale.Result) error
}

// NewClickHouse connects, pings the server and creates the table if needed.
func NewClickHouse(ctx context.Context, cfg config.ClickHouseConfig, logger *slog.Logger) (*ClickHouse, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, fmt.Sprintf(createTable, cfg.Table)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", cfg.Table, err)
	}

	c := newClickHouse(cfg.Table, cfg.BatchSize, logger)
	c.conn = conn
	c.insert = c.insertBatch
	c.log.Info("connected", "addr", cfg.Addr, "table", cfg.Table)
	return c, nil
}

func newClickHouse(table string, batchSize int, logger *slog.Logger) *ClickHouse {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &ClickHouse{
		table:     table,
		batchSize: batchSize,
		log:       logger.With("component", "clickhouse"),
		pending:   make([]scale.Result, 0, batchSize),
	}
}

// Send queues r and writes the batch once it is full.
func (c *ClickHouse) Send(ctx context.Context, r scale.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, r)
	if len(c.pending) < c.batchSize {
		return nil
	}
	return c.flush(ctx)
}

// Flush writes pending results.
func (c *ClickHouse) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flush(ctx)
}

// flush drops the batch on failure so a dead server cannot grow memory.
func (c *ClickHouse) flush(ctx context.Context) error {
	if len(c.pending) == 0 {
		return nil
	}

	err := c.insert(ctx, c.pending)
	if err != nil {
		c.log.Warn("dropping batch", "rows", len(c.pending), "err", err)
	}
	c.pending = c.pending[:0]
	return err
}

func (c *ClickHouse) insertBatch(ctx context.Context, rows []scale.Result) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO "+c.table)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(r.Timestamp, r.Weight, r.Status.String()); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Close flushes pending results and closes the connection.
func (c *ClickHouse) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.Flush(ctx)
	if c.conn != nil {
		if cerr := c.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
