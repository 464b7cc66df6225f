// Package s3 provides a provider.Factory for S3-compatible object storage.
//
// Objects are read and written as raw payloads; the item key is the
// object key. A non-empty Endpoint credential switches the client to
// path-style addressing for MinIO and other S3-compatibles.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

const defaultBatchSize = 32

// Factory creates S3 clients.
type Factory struct{}

var _ provider.Factory = (*Factory)(nil)

// New creates an S3 factory.
func New() *Factory {
	return &Factory{}
}

func (f *Factory) Kind() core.Backend {
	return core.BackendS3
}

// Connect builds a client bound to the bucket in params.
func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Bucket == "" {
		return nil, provider.NewConnectionError(core.BackendS3, fmt.Errorf("bucket is required"))
	}

	api, err := newAPI(ctx, creds)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendS3, err)
	}

	return &Client{
		api:    api,
		bucket: params.Bucket,
		prefix: params.Prefix,
		object: params.Object,
		logger: slog.Default().With("component", "s3-provider", "bucket", params.Bucket),
	}, nil
}

// Verify lists buckets as a cheap reachability and authentication check.
func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	api, err := newAPI(ctx, creds)
	if err != nil {
		return provider.NewConnectionError(core.BackendS3, err)
	}
	if _, err := api.ListBuckets(ctx, &s3.ListBucketsInput{}); err != nil {
		return provider.NewConnectionError(core.BackendS3, err)
	}
	return nil
}

func newAPI(ctx context.Context, creds provider.Credentials) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(creds.Region),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if creds.Endpoint != "" {
			o.BaseEndpoint = aws.String(creds.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Client reads and writes objects in one bucket.
type Client struct {
	api    *s3.Client
	bucket string
	prefix string
	object string
	logger *slog.Logger
}

var (
	_ provider.Source = (*Client)(nil)
	_ provider.Sink   = (*Client)(nil)
)

func (c *Client) Kind() core.Backend {
	return core.BackendS3
}

// Close is a no-op; the SDK client holds no persistent connection.
func (c *Client) Close() error {
	return nil
}

// ForEach streams objects. With Object set, exactly that object is read;
// otherwise every key under Prefix is listed and fetched in batches.
func (c *Client) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	if c.object != "" {
		item, err := c.get(ctx, c.object)
		if err != nil {
			return err
		}
		return fn([]core.Item{item})
	}

	paginator := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(c.prefix),
	})

	batch := make([]core.Item, 0, defaultBatchSize)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return provider.NewConnectionError(core.BackendS3, err)
		}
		for _, obj := range page.Contents {
			item, err := c.get(ctx, aws.ToString(obj.Key))
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

func (c *Client) get(ctx context.Context, key string) (core.Item, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return core.Item{}, provider.NewConnectionError(core.BackendS3, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return core.Item{}, provider.NewConnectionError(core.BackendS3, err)
	}

	item := core.Item{Key: key, Data: data}
	if out.ContentType != nil {
		item.Metadata = map[string]string{"content_type": aws.ToString(out.ContentType)}
	}
	return item, nil
}

// Write puts each item under its key, prefixed with the configured
// prefix. With Object set on a single-item batch the object key wins,
// so a pipeline can rename on write.
func (c *Client) Write(ctx context.Context, items []core.Item) error {
	for i := range items {
		key := items[i].Key
		if c.object != "" && len(items) == 1 {
			key = c.object
		} else if c.prefix != "" {
			key = c.prefix + key
		}

		body := items[i].Data
		if len(body) == 0 {
			body = []byte(items[i].Text)
		}

		_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
			Body:   bytes.NewReader(body),
		})
		if err != nil {
			return provider.NewConnectionError(core.BackendS3, err)
		}
		c.logger.Debug("wrote object", "key", key, "bytes", len(body))
	}
	return nil
}
