// Package gcs provides a provider.Factory for Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

const defaultBatchSize = 32

// Factory creates GCS clients.
type Factory struct{}

var _ provider.Factory = (*Factory)(nil)

// New creates a GCS factory.
func New() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() core.Backend {
	return core.BackendGCS
}

// Connect builds a client bound to the bucket in params. Credentials
// carry the service account JSON.
func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Bucket == "" {
		return nil, provider.NewConnectionError(core.BackendGCS, fmt.Errorf("bucket is required"))
	}

	api, err := newAPI(ctx, creds)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendGCS, err)
	}

	return &Client{
		api:    api,
		bucket: params.Bucket,
		prefix: params.Prefix,
		object: params.Object,
	}, nil
}

// Verify builds a client and closes it again; credential parsing is the
// part that fails offline, bucket access fails at first use.
func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	api, err := newAPI(ctx, creds)
	if err != nil {
		return provider.NewConnectionError(core.BackendGCS, err)
	}
	return api.Close()
}

func newAPI(ctx context.Context, creds provider.Credentials) (*storage.Client, error) {
	var opts []option.ClientOption
	if creds.ServiceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(creds.ServiceAccountJSON)))
	}
	if creds.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(creds.Endpoint))
	}
	return storage.NewClient(ctx, opts...)
}

// Client reads and writes objects in one bucket.
type Client struct {
	api    *storage.Client
	bucket string
	prefix string
	object string
}

var (
	_ provider.Source = (*Client)(nil)
	_ provider.Sink   = (*Client)(nil)
)

func (c *Client) Kind() core.Backend {
	return core.BackendGCS
}

func (c *Client) Close() error {
	return c.api.Close()
}

// ForEach streams objects: the single configured Object, or everything
// under Prefix.
func (c *Client) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	if c.object != "" {
		item, err := c.get(ctx, c.object)
		if err != nil {
			return err
		}
		return fn([]core.Item{item})
	}

	it := c.api.Bucket(c.bucket).Objects(ctx, &storage.Query{Prefix: c.prefix})
	batch := make([]core.Item, 0, defaultBatchSize)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return provider.NewConnectionError(core.BackendGCS, err)
		}

		item, err := c.get(ctx, attrs.Name)
		if err != nil {
			return err
		}
		batch = append(batch, item)
		if len(batch) == defaultBatchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]core.Item, 0, defaultBatchSize)
		}
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (c *Client) get(ctx context.Context, name string) (core.Item, error) {
	r, err := c.api.Bucket(c.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return core.Item{}, provider.NewConnectionError(core.BackendGCS, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return core.Item{}, provider.NewConnectionError(core.BackendGCS, err)
	}
	return core.Item{Key: name, Data: data}, nil
}

// Write uploads each item under its key.
func (c *Client) Write(ctx context.Context, items []core.Item) error {
	for i := range items {
		name := items[i].Key
		if c.object != "" && len(items) == 1 {
			name = c.object
		} else if c.prefix != "" && !strings.HasPrefix(name, c.prefix) {
			name = c.prefix + name
		}

		body := items[i].Data
		if len(body) == 0 {
			body = []byte(items[i].Text)
		}

		w := c.api.Bucket(c.bucket).Object(name).NewWriter(ctx)
		if _, err := w.Write(body); err != nil {
			w.Close()
			return provider.NewConnectionError(core.BackendGCS, err)
		}
		if err := w.Close(); err != nil {
			return provider.NewConnectionError(core.BackendGCS, err)
		}
	}
	return nil
}
