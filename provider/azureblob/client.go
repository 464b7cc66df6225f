// Package azureblob provides a provider.Factory for Azure Blob Storage.
package azureblob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

const defaultBatchSize = 32

// Factory creates Azure Blob clients.
type Factory struct{}

var _ provider.Factory = (*Factory)(nil)

// New creates an Azure Blob factory.
func New() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() core.Backend {
	return core.BackendAzureBlob
}

// Connect builds a client bound to the container named by params.Bucket.
func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Bucket == "" {
		return nil, provider.NewConnectionError(core.BackendAzureBlob, fmt.Errorf("container (bucket) is required"))
	}

	api, err := newAPI(creds)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendAzureBlob, err)
	}

	return &Client{
		api:       api,
		container: params.Bucket,
		prefix:    params.Prefix,
		object:    params.Object,
	}, nil
}

// Verify lists one page of containers as a reachability check.
func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	api, err := newAPI(creds)
	if err != nil {
		return provider.NewConnectionError(core.BackendAzureBlob, err)
	}
	pager := api.NewListContainersPager(nil)
	if pager.More() {
		if _, err := pager.NextPage(ctx); err != nil {
			return provider.NewConnectionError(core.BackendAzureBlob, err)
		}
	}
	return nil
}

func newAPI(creds provider.Credentials) (*azblob.Client, error) {
	shared, err := azblob.NewSharedKeyCredential(creds.AccountName, creds.AccountKey)
	if err != nil {
		return nil, err
	}

	serviceURL := creds.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", creds.AccountName)
	}
	return azblob.NewClientWithSharedKeyCredential(serviceURL, shared, nil)
}

// Client reads and writes blobs in one container.
type Client struct {
	api       *azblob.Client
	container string
	prefix    string
	object    string
}

var (
	_ provider.Source = (*Client)(nil)
	_ provider.Sink   = (*Client)(nil)
)

func (c *Client) Kind() core.Backend {
	return core.BackendAzureBlob
}

func (c *Client) Close() error {
	return nil
}

// ForEach streams blobs: the single configured Object, or everything
// under Prefix.
func (c *Client) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	if c.object != "" {
		item, err := c.get(ctx, c.object)
		if err != nil {
			return err
		}
		return fn([]core.Item{item})
	}

	pager := c.api.NewListBlobsFlatPager(c.container, &azblob.ListBlobsFlatOptions{
		Prefix: &c.prefix,
	})

	batch := make([]core.Item, 0, defaultBatchSize)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return provider.NewConnectionError(core.BackendAzureBlob, err)
		}
		for _, blob := range page.Segment.BlobItems {
			if blob.Name == nil {
				continue
			}
			item, err := c.get(ctx, *blob.Name)
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
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

func (c *Client) get(ctx context.Context, name string) (core.Item, error) {
	resp, err := c.api.DownloadStream(ctx, c.container, name, nil)
	if err != nil {
		return core.Item{}, provider.NewConnectionError(core.BackendAzureBlob, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Item{}, provider.NewConnectionError(core.BackendAzureBlob, err)
	}
	return core.Item{Key: name, Data: data}, nil
}

// Write uploads each item under its key, honoring Object for
// single-item renames and Prefix otherwise.
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

		if _, err := c.api.UploadBuffer(ctx, c.container, name, body, nil); err != nil {
			return provider.NewConnectionError(core.BackendAzureBlob, err)
		}
	}
	return nil
}
