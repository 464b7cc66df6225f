package transform

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/loom/ai/mock"
	"github.com/poiesic/loom/core"
)

func TestExtractMergesFields(t *testing.T) {
	generator := aimock.NewGenerator()
	generator.Response = `{"author": "Ada Lovelace", "year": "1843"}`

	e, err := NewExtract(&core.ExtractConfig{Fields: []string{"author", "year"}}, generator)
	require.NoError(t, err)

	items := []core.Item{{Key: "doc", Text: "Notes by Ada Lovelace, 1843."}}
	out, err := e.Process(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", out[0].Metadata["author"])
	assert.Equal(t, "1843", out[0].Metadata["year"])

	require.Len(t, generator.Prompts(), 1)
	assert.Contains(t, generator.Prompts()[0], "author, year")
	assert.Contains(t, generator.Prompts()[0], "Notes by Ada Lovelace")
}

func TestExtractToleratesCodeFence(t *testing.T) {
	generator := aimock.NewGenerator()
	generator.Response = "```json\n{\"topic\": \"geology\"}\n```"

	e, err := NewExtract(&core.ExtractConfig{Fields: []string{"topic"}}, generator)
	require.NoError(t, err)

	out, err := e.Process(context.Background(), []core.Item{{Key: "doc", Text: "rocks"}})
	require.NoError(t, err)
	assert.Equal(t, "geology", out[0].Metadata["topic"])
}

func TestExtractNonStringValues(t *testing.T) {
	generator := aimock.NewGenerator()
	generator.Response = `{"pages": 42, "published": true}`

	e, err := NewExtract(&core.ExtractConfig{Fields: []string{"pages", "published"}}, generator)
	require.NoError(t, err)

	out, err := e.Process(context.Background(), []core.Item{{Key: "doc", Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "42", out[0].Metadata["pages"])
	assert.Equal(t, "true", out[0].Metadata["published"])
}

func TestExtractIgnoresUnrequestedFields(t *testing.T) {
	generator := aimock.NewGenerator()
	generator.Response = `{"author": "x", "extra": "noise"}`

	e, err := NewExtract(&core.ExtractConfig{Fields: []string{"author"}}, generator)
	require.NoError(t, err)

	out, err := e.Process(context.Background(), []core.Item{{Key: "doc", Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x", out[0].Metadata["author"])
	_, ok := out[0].Metadata["extra"]
	assert.False(t, ok, "fields outside the request list are dropped")
}

func TestExtractSkipsCompleteItems(t *testing.T) {
	generator := aimock.NewGenerator()
	e, err := NewExtract(&core.ExtractConfig{Fields: []string{"author"}}, generator)
	require.NoError(t, err)

	items := []core.Item{{Key: "doc", Text: "x", Metadata: map[string]string{"author": "known"}}}
	out, err := e.Process(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "known", out[0].Metadata["author"])
	assert.Zero(t, generator.CallCount())
}

func TestExtractCustomPrompt(t *testing.T) {
	generator := aimock.NewGenerator()
	generator.Response = `{"lang": "de"}`

	e, err := NewExtract(&core.ExtractConfig{
		Fields: []string{"lang"},
		Prompt: "Detect the language of {text} as JSON",
	}, generator)
	require.NoError(t, err)

	_, err = e.Process(context.Background(), []core.Item{{Key: "doc", Text: "hallo"}})
	require.NoError(t, err)
	assert.Equal(t, "Detect the language of hallo as JSON", generator.Prompts()[0])
}

func TestExtractRejectsNonJSONAnswer(t *testing.T) {
	generator := aimock.NewGenerator()
	generator.Response = "I could not find any fields."

	e, err := NewExtract(&core.ExtractConfig{Fields: []string{"author"}}, generator)
	require.NoError(t, err)

	_, err = e.Process(context.Background(), []core.Item{{Key: "doc", Text: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object")
}

func TestNewExtractValidation(t *testing.T) {
	_, err := NewExtract(&core.ExtractConfig{}, aimock.NewGenerator())
	require.ErrorIs(t, err, ErrConfigRequired)

	_, err = NewExtract(&core.ExtractConfig{Fields: []string{"a"}}, nil)
	require.ErrorIs(t, err, ErrGeneratorRequired)
}
