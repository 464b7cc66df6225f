package transform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/loom/ai/mock"
	"github.com/poiesic/loom/core"
)

func TestEmbeddingPopulatesVectors(t *testing.T) {
	embedder := aimock.NewEmbedder()
	e, err := NewEmbedding(&core.EmbeddingConfig{Model: "test-model"}, embedder)
	require.NoError(t, err)

	items := []core.Item{
		{Key: "a", Text: "alpha"},
		{Key: "b", Text: "beta"},
	}

	out, err := e.Process(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEmpty(t, out[0].Vector)
	assert.NotEmpty(t, out[1].Vector)
	assert.NotEqual(t, out[0].Vector, out[1].Vector, "different texts get different vectors")
}

func TestEmbeddingSkipsItemsWithVectors(t *testing.T) {
	embedder := aimock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		require.Equal(t, []string{"needs work"}, texts, "only unembedded items go to the model")
		return [][]float32{{0.5}}, nil
	}

	e, err := NewEmbedding(&core.EmbeddingConfig{}, embedder)
	require.NoError(t, err)

	existing := []float32{1, 2, 3}
	items := []core.Item{
		{Key: "done", Text: "already embedded", Vector: existing},
		{Key: "todo", Text: "needs work"},
	}

	out, err := e.Process(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, existing, out[0].Vector, "existing vector is untouched")
	assert.Equal(t, []float32{0.5}, out[1].Vector)
}

func TestEmbeddingMutatesBatchInPlace(t *testing.T) {
	e, err := NewEmbedding(&core.EmbeddingConfig{}, aimock.NewEmbedder())
	require.NoError(t, err)

	items := []core.Item{{Key: "a", Text: "alpha"}}
	_, err = e.Process(context.Background(), items)
	require.NoError(t, err)
	assert.NotEmpty(t, items[0].Vector, "retried batches must see completed vectors")
}

func TestEmbeddingAllDoneSkipsModel(t *testing.T) {
	embedder := aimock.NewEmbedder()
	e, err := NewEmbedding(&core.EmbeddingConfig{}, embedder)
	require.NoError(t, err)

	items := []core.Item{{Key: "a", Text: "alpha", Vector: []float32{1}}}
	_, err = e.Process(context.Background(), items)
	require.NoError(t, err)
	assert.Zero(t, embedder.CallCount(), "fully embedded batch makes no model calls")
}

func TestEmbeddingBatching(t *testing.T) {
	embedder := aimock.NewEmbedder()
	var batchSizes []int
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		batchSizes = append(batchSizes, len(texts))
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{float32(i)}
		}
		return vectors, nil
	}

	e, err := NewEmbedding(&core.EmbeddingConfig{BatchSize: 2}, embedder)
	require.NoError(t, err)

	items := make([]core.Item, 5)
	for i := range items {
		items[i] = core.Item{Key: string(rune('a' + i)), Text: "text"}
	}

	_, err = e.Process(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestEmbeddingModelError(t *testing.T) {
	boom := errors.New("model unavailable")
	embedder := aimock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, boom
	}

	e, err := NewEmbedding(&core.EmbeddingConfig{}, embedder)
	require.NoError(t, err)

	_, err = e.Process(context.Background(), []core.Item{{Key: "a", Text: "alpha"}})
	require.ErrorIs(t, err, boom)
}

func TestEmbeddingResultCountMismatch(t *testing.T) {
	embedder := aimock.NewEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{}, nil
	}

	e, err := NewEmbedding(&core.EmbeddingConfig{}, embedder)
	require.NoError(t, err)

	_, err = e.Process(context.Background(), []core.Item{{Key: "a", Text: "alpha"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestNewEmbeddingRequiresEmbedder(t *testing.T) {
	_, err := NewEmbedding(&core.EmbeddingConfig{}, nil)
	require.ErrorIs(t, err, ErrEmbedderRequired)
}
