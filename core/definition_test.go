package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDefinition(t *testing.T) (*Definition, NodeID, NodeID, NodeID) {
	t.Helper()

	def := NewDefinition("ingest")
	in := def.AddProviderInput(ProviderParams{
		Backend:       BackendS3,
		CredentialRef: "cred-s3",
		Bucket:        "docs",
		Object:        "doc.pdf",
	})
	chunk := def.AddTransform(TransformDef{
		Type:  TransformChunk,
		Chunk: &ChunkConfig{Size: 512, Overlap: 64},
	})
	out := def.AddProviderOutput(ProviderParams{
		Backend:       BackendLocal,
		CredentialRef: "cred-local",
		Path:          t.TempDir(),
	})
	def.Connect(in, chunk)
	def.Connect(chunk, out)
	return def, in, chunk, out
}

func TestDefinition_Builders(t *testing.T) {
	def, in, chunk, out := buildDefinition(t)

	require.Len(t, def.Nodes, 3)
	require.Len(t, def.Edges, 2)
	assert.Equal(t, KindInput, def.Nodes[in].Kind)
	assert.Equal(t, KindTransform, def.Nodes[chunk].Kind)
	assert.Equal(t, KindOutput, def.Nodes[out].Kind)
	assert.Equal(t, Edge{From: in, To: chunk}, def.Edges[0])
}

func TestDefinition_CacheHelpers(t *testing.T) {
	def := NewDefinition("cached")
	producer := def.AddCacheOutput("chunks", 2)
	consumer := def.AddCacheInput("chunks", 1)

	require.Equal(t, OutputCache, def.Nodes[producer].Output.Target)
	assert.Equal(t, "chunks", def.Nodes[producer].Output.Cache.Slot)
	assert.Equal(t, 2, def.Nodes[producer].Output.Cache.Priority)

	require.Equal(t, InputCacheSlot, def.Nodes[consumer].Input.Source)
	assert.Equal(t, "chunks", def.Nodes[consumer].Input.CacheSlot.Slot)
}

func TestDefinition_Equal(t *testing.T) {
	def, _, _, _ := buildDefinition(t)

	data, err := MarshalDefinition(def)
	require.NoError(t, err)
	roundTripped, err := UnmarshalDefinition(data)
	require.NoError(t, err)

	assert.True(t, def.Equal(roundTripped), "JSON round trip must preserve structural equality")

	roundTripped.Metadata.Name = "other"
	assert.False(t, def.Equal(roundTripped))
}

func TestDefinition_ConnectPorts(t *testing.T) {
	def := NewDefinition("ports")
	a := def.AddCacheOutput("x", 0)
	b := def.AddCacheInput("x", 0)
	def.ConnectPorts(a, "true", b, "")

	require.Len(t, def.Edges, 1)
	assert.Equal(t, "true", def.Edges[0].FromPort)
	assert.Empty(t, def.Edges[0].ToPort)
}
