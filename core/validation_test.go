package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDefinitionNil(t *testing.T) {
	require.ErrorIs(t, ValidateDefinition(nil), ErrInvalidDefinition)
}

func TestValidateDefinitionAcceptsWellFormed(t *testing.T) {
	def, _, _, _ := buildDefinition(t)
	require.NoError(t, ValidateDefinition(def))
}

func TestValidateDefinitionDanglingEdge(t *testing.T) {
	def, in, _, _ := buildDefinition(t)
	def.Connect(in, NewNodeID())

	err := ValidateDefinition(def)
	require.ErrorIs(t, err, ErrInvalidDefinition)
	require.ErrorIs(t, err, ErrUnknownNode)
}

func TestValidateNodeDefKindMismatch(t *testing.T) {
	// Kind says input but an output definition is attached
	err := ValidateNodeDef(&NodeDef{
		Kind:   KindInput,
		Output: &OutputDef{Target: OutputCache, Cache: &CacheSlot{Slot: "s"}},
	})
	require.Error(t, err)

	// Two roles at once
	err = ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformPartition},
		Input:     &InputDef{Source: InputCacheSlot, CacheSlot: &CacheSlot{Slot: "s"}},
	})
	require.Error(t, err)
}

func TestValidateNodeDefUnknownKind(t *testing.T) {
	err := ValidateNodeDef(&NodeDef{Kind: "router"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "router")
}

func TestValidateInputRequiresVariantConfig(t *testing.T) {
	err := ValidateNodeDef(&NodeDef{Kind: KindInput, Input: &InputDef{Source: InputProvider}})
	require.Error(t, err, "provider input without params")

	err = ValidateNodeDef(&NodeDef{Kind: KindInput, Input: &InputDef{Source: InputCacheSlot}})
	require.Error(t, err, "cache input without slot")

	err = ValidateNodeDef(&NodeDef{
		Kind:  KindInput,
		Input: &InputDef{Source: InputCacheSlot, CacheSlot: &CacheSlot{}},
	})
	require.ErrorIs(t, err, ErrEmptySlot)
}

func TestValidateProviderParamsRequiredFields(t *testing.T) {
	err := ValidateProviderParams(&ProviderParams{Backend: BackendS3})
	require.Error(t, err, "credential_ref is required")

	err = ValidateProviderParams(&ProviderParams{CredentialRef: "c"})
	require.Error(t, err, "backend is required")

	err = ValidateProviderParams(&ProviderParams{Backend: "cassandra", CredentialRef: "c"})
	require.ErrorIs(t, err, ErrUnknownBackend)

	require.NoError(t, ValidateProviderParams(&ProviderParams{Backend: BackendPostgres, CredentialRef: "c", Table: "docs"}))
}

func TestValidateTransformConfigs(t *testing.T) {
	require.NoError(t, ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformPartition},
	}), "partition config is optional")

	err := ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformChunk, Chunk: &ChunkConfig{Size: 100, Overlap: 100}},
	})
	require.Error(t, err, "overlap must be smaller than size")

	err = ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformEmbedding},
	})
	require.Error(t, err, "embedding requires config")

	err = ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformEmbedding, Embedding: &EmbeddingConfig{Model: "m"}},
	})
	require.Error(t, err, "embedding requires a credential reference")

	err = ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformExtract, Extract: &ExtractConfig{Model: "m", CredentialRef: "c"}},
	})
	require.Error(t, err, "extract requires at least one field")

	require.NoError(t, ValidateNodeDef(&NodeDef{
		Kind:      KindTransform,
		Transform: &TransformDef{Type: TransformDerive, Derive: &DeriveConfig{Field: "f", Template: "{key}"}},
	}))
}

func TestValidateOutputRequiresVariantConfig(t *testing.T) {
	err := ValidateNodeDef(&NodeDef{Kind: KindOutput, Output: &OutputDef{Target: OutputProvider}})
	require.Error(t, err)

	err = ValidateNodeDef(&NodeDef{Kind: KindOutput, Output: &OutputDef{Target: "queue"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue")
}
