// Package mysql provides a provider.Factory backed by a MySQL document
// table. It mirrors the postgres provider with MySQL upsert syntax.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

const readBatchSize = 100

// Factory creates MySQL clients.
type Factory struct{}

var _ provider.Factory = (*Factory)(nil)

// New creates a MySQL factory.
func New() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() core.Backend {
	return core.BackendMySQL
}

// Connect opens a connection pool and ensures the document table exists.
func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Table == "" {
		return nil, provider.NewConnectionError(core.BackendMySQL, fmt.Errorf("table is required"))
	}

	db, err := open(ctx, creds)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendMySQL, err)
	}

	c := &Client{db: db, table: "`" + params.Table + "`"}
	if err := c.migrate(ctx); err != nil {
		db.Close()
		return nil, provider.NewConnectionError(core.BackendMySQL, fmt.Errorf("migration failed: %w", err))
	}
	return c, nil
}

// Verify opens a connection and pings it.
func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	db, err := open(ctx, creds)
	if err != nil {
		return provider.NewConnectionError(core.BackendMySQL, err)
	}
	defer db.Close()
	return nil
}

func open(ctx context.Context, creds provider.Credentials) (*sql.DB, error) {
	db, err := sql.Open("mysql", creds.ConnectionString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	return db, nil
}

// Client reads and writes one document table.
type Client struct {
	db    *sql.DB
	table string
}

var (
	_ provider.Source = (*Client)(nil)
	_ provider.Sink   = (*Client)(nil)
)

func (c *Client) migrate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			doc_key    VARCHAR(512) PRIMARY KEY,
			data       LONGBLOB,
			text       LONGTEXT,
			metadata   JSON,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`, c.table))
	return err
}

func (c *Client) Kind() core.Backend {
	return core.BackendMySQL
}

func (c *Client) Close() error {
	return c.db.Close()
}

// ForEach streams rows in key order, batched.
func (c *Client) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT doc_key, data, text, metadata FROM %s ORDER BY doc_key`, c.table))
	if err != nil {
		return provider.NewConnectionError(core.BackendMySQL, err)
	}
	defer rows.Close()

	batch := make([]core.Item, 0, readBatchSize)
	for rows.Next() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var (
			item core.Item
			text sql.NullString
			meta []byte
		)
		if err := rows.Scan(&item.Key, &item.Data, &text, &meta); err != nil {
			return provider.NewConnectionError(core.BackendMySQL, err)
		}
		item.Text = text.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &item.Metadata); err != nil {
				return provider.NewConnectionError(core.BackendMySQL, err)
			}
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
		return provider.NewConnectionError(core.BackendMySQL, err)
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

// Write upserts each item by key.
func (c *Client) Write(ctx context.Context, items []core.Item) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (doc_key, data, text, metadata)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
		data = VALUES(data), text = VALUES(text), metadata = VALUES(metadata)`, c.table)

	for i := range items {
		meta, err := json.Marshal(items[i].Metadata)
		if err != nil {
			return err
		}
		if _, err := c.db.ExecContext(ctx, stmt, items[i].Key, items[i].Data, items[i].Text, meta); err != nil {
			return provider.NewConnectionError(core.BackendMySQL, err)
		}
	}
	return nil
}
