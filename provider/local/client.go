// Package local provides a provider.Factory backed by an embedded
// BadgerDB key-value store. It lets pipelines run end to end without any
// external service: useful for development, testing, and offline
// processing. An empty Path opens an in-memory store.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

const readBatchSize = 100

// Factory creates local clients.
type Factory struct{}

var _ provider.Factory = (*Factory)(nil)

// New creates a local factory.
func New() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() core.Backend {
	return core.BackendLocal
}

// Connect opens (or creates) the store at params.Path. The local backend
// needs no secret material; credentials are accepted and ignored so the
// provider contract stays uniform.
func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	db, err := open(params.Path)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendLocal, err)
	}
	return &Client{
		db:     db,
		prefix: params.Prefix,
		object: params.Object,
		logger: slog.Default().With("component", "local-provider"),
	}, nil
}

// Verify always succeeds; there is nothing remote to reach.
func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	return nil
}

func open(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(path, 0755); err != nil {
				return nil, err
			}
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", path)
		}
		opts = badger.DefaultOptions(path)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None
	return badger.Open(opts)
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Client reads and writes items in one Badger store.
type Client struct {
	db     *badger.DB
	prefix string
	object string
	logger *slog.Logger
}

var (
	_ provider.Source = (*Client)(nil)
	_ provider.Sink   = (*Client)(nil)
)

func (c *Client) Kind() core.Backend {
	return core.BackendLocal
}

func (c *Client) Close() error {
	return c.db.Close()
}

// ForEach streams items: the single configured Object, or every key
// under Prefix in key order, batched.
func (c *Client) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	if c.object != "" {
		item, err := c.get(c.object)
		if err != nil {
			return err
		}
		return fn([]core.Item{item})
	}

	batch := make([]core.Item, 0, readBatchSize)
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(c.prefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			entry := it.Item()
			key := string(entry.KeyCopy(nil))
			err := entry.Value(func(val []byte) error {
				item, err := unmarshalItem(key, val)
				if err != nil {
					return err
				}
				batch = append(batch, item)
				return nil
			})
			if err != nil {
				return err
			}

			if len(batch) == readBatchSize {
				if err := fn(batch); err != nil {
					return err
				}
				batch = make([]core.Item, 0, readBatchSize)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (c *Client) get(key string) (core.Item, error) {
	var item core.Item
	err := c.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			item, err = unmarshalItem(key, val)
			return err
		})
	})
	if err != nil {
		return core.Item{}, fmt.Errorf("get %q: %w", key, err)
	}
	return item, nil
}

// Write upserts each item under its key, honoring Object for
// single-item renames and Prefix otherwise.
func (c *Client) Write(ctx context.Context, items []core.Item) error {
	now := time.Now().UnixMicro()
	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range items {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		key := items[i].Key
		if c.object != "" && len(items) == 1 {
			key = c.object
		} else if c.prefix != "" {
			key = c.prefix + key
		}

		if err := wb.Set([]byte(key), marshalItem(items[i], now)); err != nil {
			return err
		}
	}

	if err := wb.Flush(); err != nil {
		return err
	}
	c.logger.Debug("wrote items", "count", len(items))
	return nil
}
