package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

func newTestClient(t *testing.T, params core.ProviderParams) *Client {
	t.Helper()

	client, err := New().Connect(context.Background(), params, provider.Credentials{})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client.(*Client)
}

func TestClient_WriteReadRoundTrip(t *testing.T) {
	client := newTestClient(t, core.ProviderParams{Backend: core.BackendLocal})

	items := []core.Item{
		{Key: "a", Data: []byte("payload-a"), Text: "text-a", Metadata: map[string]string{"lang": "en"}, Vector: []float32{0.1, 0.2, 0.3}},
		{Key: "b", Data: []byte("payload-b")},
	}
	require.NoError(t, client.Write(context.Background(), items))

	var got []core.Item
	err := client.ForEach(context.Background(), func(batch []core.Item) error {
		got = append(got, batch...)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].Key)
	assert.Equal(t, []byte("payload-a"), got[0].Data)
	assert.Equal(t, "text-a", got[0].Text)
	assert.Equal(t, map[string]string{"lang": "en"}, got[0].Metadata)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got[0].Vector, "embedding must survive the round trip")
	assert.Equal(t, "b", got[1].Key)
	assert.Empty(t, got[1].Vector)
}

func TestClient_WriteIsUpsert(t *testing.T) {
	client := newTestClient(t, core.ProviderParams{Backend: core.BackendLocal})

	batch := []core.Item{{Key: "a", Data: []byte("v1")}}
	require.NoError(t, client.Write(context.Background(), batch))
	// Re-delivery of the same batch after a failed attempt
	require.NoError(t, client.Write(context.Background(), batch))

	count := 0
	err := client.ForEach(context.Background(), func(items []core.Item) error {
		count += len(items)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count, "duplicate writes must not duplicate rows")
}

func TestClient_ObjectRename(t *testing.T) {
	client := newTestClient(t, core.ProviderParams{Backend: core.BackendLocal, Object: "out/doc.pdf"})

	require.NoError(t, client.Write(context.Background(), []core.Item{{Key: "doc.pdf", Data: []byte("x")}}))

	item, err := client.get("out/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), item.Data)
}

func TestClient_PrefixScan(t *testing.T) {
	seed := newTestClient(t, core.ProviderParams{Backend: core.BackendLocal, Path: t.TempDir()})
	require.NoError(t, seed.Write(context.Background(), []core.Item{
		{Key: "docs/a", Data: []byte("a")},
		{Key: "docs/b", Data: []byte("b")},
		{Key: "other/c", Data: []byte("c")},
	}))

	var keys []string
	scoped := &Client{db: seed.db, prefix: "docs/", logger: seed.logger}
	err := scoped.ForEach(context.Background(), func(items []core.Item) error {
		for _, it := range items {
			keys = append(keys, it.Key)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a", "docs/b"}, keys)
}

func TestSerialization_RoundTrip(t *testing.T) {
	item := core.Item{
		Key:      "k",
		Data:     []byte{0x00, 0xff, 0x10},
		Text:     "some text",
		Metadata: map[string]string{"a": "1", "b": "2"},
		Vector:   []float32{-1.5, 0, 2.25},
	}

	got, err := unmarshalItem("k", marshalItem(item, 42))
	require.NoError(t, err)
	assert.Equal(t, item, got)
}
