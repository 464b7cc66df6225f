// Package postgres provides a provider.Factory backed by a PostgreSQL
// document table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

const readBatchSize = 100

// Factory creates PostgreSQL clients.
type Factory struct{}

var _ provider.Factory = (*Factory)(nil)

// New creates a PostgreSQL factory.
func New() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() core.Backend {
	return core.BackendPostgres
}

// Connect opens a connection pool and ensures the document table exists.
func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Table == "" {
		return nil, provider.NewConnectionError(core.BackendPostgres, fmt.Errorf("table is required"))
	}

	pool, err := openPool(ctx, creds)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendPostgres, err)
	}

	c := &Client{pool: pool, table: pgx.Identifier{params.Table}.Sanitize()}
	if err := c.migrate(ctx); err != nil {
		pool.Close()
		return nil, provider.NewConnectionError(core.BackendPostgres, fmt.Errorf("migration failed: %w", err))
	}
	return c, nil
}

// Verify opens a pool and pings it.
func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	pool, err := openPool(ctx, creds)
	if err != nil {
		return provider.NewConnectionError(core.BackendPostgres, err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return provider.NewConnectionError(core.BackendPostgres, err)
	}
	return nil
}

func openPool(ctx context.Context, creds provider.Credentials) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(creds.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Connection pooling configuration
	config.MaxConns = 10
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return pool, nil
}

// Client reads and writes one document table. The table holds one row
// per item key: (key TEXT PRIMARY KEY, data BYTEA, text TEXT,
// metadata JSONB, updated_at TIMESTAMPTZ).
type Client struct {
	pool  *pgxpool.Pool
	table string
}

var (
	_ provider.Source = (*Client)(nil)
	_ provider.Sink   = (*Client)(nil)
)

func (c *Client) migrate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			data       BYTEA,
			text       TEXT NOT NULL DEFAULT '',
			metadata   JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, c.table))
	return err
}

func (c *Client) Kind() core.Backend {
	return core.BackendPostgres
}

func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// ForEach streams rows in key order, batched.
func (c *Client) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	rows, err := c.pool.Query(ctx, fmt.Sprintf(
		`SELECT key, data, text, metadata FROM %s ORDER BY key`, c.table))
	if err != nil {
		return provider.NewConnectionError(core.BackendPostgres, err)
	}
	defer rows.Close()

	batch := make([]core.Item, 0, readBatchSize)
	for rows.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var item core.Item
		if err := rows.Scan(&item.Key, &item.Data, &item.Text, &item.Metadata); err != nil {
			return provider.NewConnectionError(core.BackendPostgres, err)
		}
		batch = append(batch, item)
		if len(batch) == readBatchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]core.Item, 0, readBatchSize)
		}
	}
	if err := rows.Err(); err != nil {
		return provider.NewConnectionError(core.BackendPostgres, err)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Write upserts each item by key, so re-delivered batches are harmless.
func (c *Client) Write(ctx context.Context, items []core.Item) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (key, data, text, metadata, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, text = EXCLUDED.text,
		    metadata = EXCLUDED.metadata, updated_at = now()`, c.table)

	b := &pgx.Batch{}
	for i := range items {
		meta := items[i].Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		b.Queue(sql, items[i].Key, items[i].Data, items[i].Text, meta)
	}

	if err := c.pool.SendBatch(ctx, b).Close(); err != nil {
		return provider.NewConnectionError(core.BackendPostgres, err)
	}
	return nil
}
