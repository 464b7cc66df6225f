package vector

import (
	"context"
	"fmt"
	"net/url"

	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/tmc/langchaingo/vectorstores/milvus"
	"github.com/tmc/langchaingo/vectorstores/pgvector"
	"github.com/tmc/langchaingo/vectorstores/pinecone"
	"github.com/tmc/langchaingo/vectorstores/qdrant"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

// QdrantFactory creates Qdrant sinks.
type QdrantFactory struct{}

var _ provider.Factory = (*QdrantFactory)(nil)

// NewQdrant creates a Qdrant factory.
func NewQdrant() *QdrantFactory {
	return &QdrantFactory{}
}

func (f *QdrantFactory) Kind() core.Backend {
	return core.BackendQdrant
}

func (f *QdrantFactory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Collection == "" {
		return nil, provider.NewConnectionError(core.BackendQdrant, fmt.Errorf("collection is required"))
	}
	endpoint, err := url.Parse(creds.Endpoint)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendQdrant, fmt.Errorf("bad endpoint: %w", err))
	}

	embed := &precomputedEmbedder{}
	store, err := qdrant.New(
		qdrant.WithURL(*endpoint),
		qdrant.WithAPIKey(creds.APIKey),
		qdrant.WithCollectionName(params.Collection),
		qdrant.WithEmbedder(embed),
	)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendQdrant, err)
	}
	return newSink(core.BackendQdrant, store, embed, nil), nil
}

func (f *QdrantFactory) Verify(ctx context.Context, creds provider.Credentials) error {
	if creds.Endpoint == "" {
		return provider.NewConnectionError(core.BackendQdrant, fmt.Errorf("endpoint is required"))
	}
	if _, err := url.Parse(creds.Endpoint); err != nil {
		return provider.NewConnectionError(core.BackendQdrant, err)
	}
	return nil
}

// PineconeFactory creates Pinecone sinks.
type PineconeFactory struct{}

var _ provider.Factory = (*PineconeFactory)(nil)

// NewPinecone creates a Pinecone factory.
func NewPinecone() *PineconeFactory {
	return &PineconeFactory{}
}

func (f *PineconeFactory) Kind() core.Backend {
	return core.BackendPinecone
}

func (f *PineconeFactory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Collection == "" {
		return nil, provider.NewConnectionError(core.BackendPinecone, fmt.Errorf("collection (index host) is required"))
	}

	embed := &precomputedEmbedder{}
	opts := []pinecone.Option{
		pinecone.WithAPIKey(creds.APIKey),
		pinecone.WithHost(params.Collection),
		pinecone.WithEmbedder(embed),
	}
	if params.Namespace != "" {
		opts = append(opts, pinecone.WithNameSpace(params.Namespace))
	}

	store, err := pinecone.New(opts...)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendPinecone, err)
	}
	return newSink(core.BackendPinecone, store, embed, nil), nil
}

func (f *PineconeFactory) Verify(ctx context.Context, creds provider.Credentials) error {
	if creds.APIKey == "" {
		return provider.NewConnectionError(core.BackendPinecone, fmt.Errorf("api key is required"))
	}
	return nil
}

// MilvusFactory creates Milvus sinks.
type MilvusFactory struct{}

var _ provider.Factory = (*MilvusFactory)(nil)

// NewMilvus creates a Milvus factory.
func NewMilvus() *MilvusFactory {
	return &MilvusFactory{}
}

func (f *MilvusFactory) Kind() core.Backend {
	return core.BackendMilvus
}

func (f *MilvusFactory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Collection == "" {
		return nil, provider.NewConnectionError(core.BackendMilvus, fmt.Errorf("collection is required"))
	}

	embed := &precomputedEmbedder{}
	store, err := milvus.New(ctx,
		milvusclient.Config{
			Address:  creds.Endpoint,
			Username: creds.Username,
			Password: creds.Password,
		},
		milvus.WithCollectionName(params.Collection),
		milvus.WithEmbedder(embed),
	)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendMilvus, err)
	}
	return newSink(core.BackendMilvus, store, embed, nil), nil
}

func (f *MilvusFactory) Verify(ctx context.Context, creds provider.Credentials) error {
	if creds.Endpoint == "" {
		return provider.NewConnectionError(core.BackendMilvus, fmt.Errorf("endpoint is required"))
	}
	return nil
}

// PGVectorFactory creates pgvector sinks.
type PGVectorFactory struct{}

var _ provider.Factory = (*PGVectorFactory)(nil)

// NewPGVector creates a pgvector factory.
func NewPGVector() *PGVectorFactory {
	return &PGVectorFactory{}
}

func (f *PGVectorFactory) Kind() core.Backend {
	return core.BackendPGVector
}

func (f *PGVectorFactory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	if params.Collection == "" {
		return nil, provider.NewConnectionError(core.BackendPGVector, fmt.Errorf("collection is required"))
	}

	embed := &precomputedEmbedder{}
	store, err := pgvector.New(ctx,
		pgvector.WithConnectionURL(creds.ConnectionString),
		pgvector.WithCollectionName(params.Collection),
		pgvector.WithEmbedder(embed),
	)
	if err != nil {
		return nil, provider.NewConnectionError(core.BackendPGVector, err)
	}
	return newSink(core.BackendPGVector, store, embed, store.Close), nil
}

func (f *PGVectorFactory) Verify(ctx context.Context, creds provider.Credentials) error {
	if creds.ConnectionString == "" {
		return provider.NewConnectionError(core.BackendPGVector, fmt.Errorf("connection string is required"))
	}
	return nil
}
