// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"reflect"
	"time"
)

// NodeKind discriminates the three node roles.
type NodeKind string

const (
	KindInput     NodeKind = "input"
	KindTransform NodeKind = "transform"
	KindOutput    NodeKind = "output"
)

// InputSource discriminates where an input node reads from.
type InputSource string

const (
	InputProvider  InputSource = "provider"
	InputCacheSlot InputSource = "cache_slot"
)

// OutputTarget discriminates where an output node writes to.
type OutputTarget string

const (
	OutputProvider OutputTarget = "provider"
	OutputCache    OutputTarget = "cache"
)

// TransformType enumerates the processing task kinds.
type TransformType string

const (
	TransformPartition TransformType = "partition"
	TransformChunk     TransformType = "chunk"
	TransformEmbedding TransformType = "embedding"
	TransformEnrich    TransformType = "enrich"
	TransformExtract   TransformType = "extract"
	TransformDerive    TransformType = "derive"
)

// Metadata carries the descriptive fields of a Definition.
type Metadata struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Version     string    `json:"version,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}

// Edge is a directed connection between two nodes. Ports are optional
// logical sub-connections; an empty port means the node's single
// default port.
type Edge struct {
	From     NodeID `json:"from"`
	To       NodeID `json:"to"`
	FromPort string `json:"from_port,omitempty"`
	ToPort   string `json:"to_port,omitempty"`
}

// CacheSlot names a virtual wire. A producer writing to slot "chunks"
// is connected at compile time to every consumer reading slot "chunks",
// bypassing external storage entirely. When several producers share a
// slot name the one with the highest Priority wins; equal priorities
// are broken by ascending NodeID, which for time-ordered IDs means the
// earliest-created producer.
type CacheSlot struct {
	Slot     string `json:"slot"`
	Priority int    `json:"priority,omitempty"`
}

// ProviderParams holds the non-sensitive parameters of a provider-backed
// node. Secret material is never part of a Definition: CredentialRef is an
// opaque id resolved against an external credentials registry at compile
// time, so a serialized Definition can be stored, versioned, or displayed
// without exposing secrets.
type ProviderParams struct {
	Backend       Backend           `json:"backend" validate:"required"`
	CredentialRef string            `json:"credential_ref" validate:"required"`
	Bucket        string            `json:"bucket,omitempty"`     // Object stores: bucket or container
	Prefix        string            `json:"prefix,omitempty"`     // Object stores: key prefix to scan
	Object        string            `json:"object,omitempty"`     // Object stores: single object key
	Table         string            `json:"table,omitempty"`      // Relational stores: document table
	Collection    string            `json:"collection,omitempty"` // Vector stores: collection or index
	Namespace     string            `json:"namespace,omitempty"`  // Vector stores: namespace, where supported
	Path          string            `json:"path,omitempty"`       // Local store: database directory
	Options       map[string]string `json:"options,omitempty"`
}

// InputDef configures an input node.
type InputDef struct {
	Source    InputSource     `json:"source"`
	Provider  *ProviderParams `json:"provider,omitempty"`
	CacheSlot *CacheSlot      `json:"cache_slot,omitempty"`
}

// OutputDef configures an output node.
type OutputDef struct {
	Target   OutputTarget    `json:"target"`
	Provider *ProviderParams `json:"provider,omitempty"`
	Cache    *CacheSlot      `json:"cache,omitempty"`
}

// PartitionConfig configures a partition transform.
type PartitionConfig struct {
	// Strategy selects how raw payloads become text elements:
	// "none" (payload becomes one text item), "lines", or "paragraphs".
	Strategy string `json:"strategy,omitempty"`
}

// ChunkConfig configures a chunk transform.
type ChunkConfig struct {
	Size       int      `json:"size,omitempty"`
	Overlap    int      `json:"overlap,omitempty"`
	Separators []string `json:"separators,omitempty"`
}

// EmbeddingConfig configures an embedding transform.
type EmbeddingConfig struct {
	Model         string `json:"model" validate:"required"`
	CredentialRef string `json:"credential_ref" validate:"required"`
	BatchSize     int    `json:"batch_size,omitempty"`
}

// EnrichConfig configures an enrich transform. The model's answer to
// Prompt (formatted with the item's text and metadata) is stored under
// Field in the item metadata.
type EnrichConfig struct {
	Model         string `json:"model" validate:"required"`
	CredentialRef string `json:"credential_ref" validate:"required"`
	Prompt        string `json:"prompt" validate:"required"`
	Field         string `json:"field" validate:"required"`
}

// ExtractConfig configures an extract transform. The model is asked to
// return the named fields as a JSON object, which is merged into the
// item metadata.
type ExtractConfig struct {
	Model         string   `json:"model" validate:"required"`
	CredentialRef string   `json:"credential_ref" validate:"required"`
	Fields        []string `json:"fields" validate:"required,min=1"`
	Prompt        string   `json:"prompt,omitempty"` // Optional override of the built-in extraction prompt
}

// DeriveConfig configures a derive transform: a pure template expansion
// over the item's existing metadata and text, no model involved.
type DeriveConfig struct {
	Field    string `json:"field" validate:"required"`
	Template string `json:"template" validate:"required"`
}

// TransformDef configures a transform node. Exactly one config field
// matching Type must be set.
type TransformDef struct {
	Type      TransformType    `json:"type"`
	Partition *PartitionConfig `json:"partition,omitempty"`
	Chunk     *ChunkConfig     `json:"chunk,omitempty"`
	Embedding *EmbeddingConfig `json:"embedding,omitempty"`
	Enrich    *EnrichConfig    `json:"enrich,omitempty"`
	Extract   *ExtractConfig   `json:"extract,omitempty"`
	Derive    *DeriveConfig    `json:"derive,omitempty"`
}

// NodeDef is a tagged variant over the three node roles. Exactly one of
// Input, Transform, Output is non-nil, matching Kind.
type NodeDef struct {
	Kind      NodeKind      `json:"kind"`
	Input     *InputDef     `json:"-"`
	Transform *TransformDef `json:"-"`
	Output    *OutputDef    `json:"-"`
}

// Definition is the serializable, editor-facing description of a pipeline.
// It is treated as an immutable value between compiles: edits replace the
// definition rather than mutating a shared instance.
type Definition struct {
	Metadata Metadata
	Nodes    map[NodeID]*NodeDef
	Edges    []Edge
}

// NewDefinition creates an empty Definition with the given name.
func NewDefinition(name string) *Definition {
	now := time.Now().UTC()
	return &Definition{
		Metadata: Metadata{Name: name, CreatedAt: now, UpdatedAt: now},
		Nodes:    make(map[NodeID]*NodeDef),
	}
}

// AddNode attaches a node definition and returns its freshly minted id.
func (d *Definition) AddNode(def *NodeDef) NodeID {
	id := NewNodeID()
	if d.Nodes == nil {
		d.Nodes = make(map[NodeID]*NodeDef)
	}
	d.Nodes[id] = def
	d.Metadata.UpdatedAt = time.Now().UTC()
	return id
}

// AddProviderInput adds an input node reading from an external backend.
func (d *Definition) AddProviderInput(params ProviderParams) NodeID {
	return d.AddNode(&NodeDef{
		Kind:  KindInput,
		Input: &InputDef{Source: InputProvider, Provider: &params},
	})
}

// AddCacheInput adds an input node reading from a named cache slot.
func (d *Definition) AddCacheInput(slot string, priority int) NodeID {
	return d.AddNode(&NodeDef{
		Kind:  KindInput,
		Input: &InputDef{Source: InputCacheSlot, CacheSlot: &CacheSlot{Slot: slot, Priority: priority}},
	})
}

// AddTransform adds a transform node.
func (d *Definition) AddTransform(def TransformDef) NodeID {
	return d.AddNode(&NodeDef{Kind: KindTransform, Transform: &def})
}

// AddProviderOutput adds an output node writing to an external backend.
func (d *Definition) AddProviderOutput(params ProviderParams) NodeID {
	return d.AddNode(&NodeDef{
		Kind:   KindOutput,
		Output: &OutputDef{Target: OutputProvider, Provider: &params},
	})
}

// AddCacheOutput adds an output node publishing to a named cache slot.
func (d *Definition) AddCacheOutput(slot string, priority int) NodeID {
	return d.AddNode(&NodeDef{
		Kind:   KindOutput,
		Output: &OutputDef{Target: OutputCache, Cache: &CacheSlot{Slot: slot, Priority: priority}},
	})
}

// Connect adds a directed edge between two nodes on their default ports.
func (d *Definition) Connect(from, to NodeID) {
	d.ConnectPorts(from, "", to, "")
}

// ConnectPorts adds a directed edge between two node ports.
func (d *Definition) ConnectPorts(from NodeID, fromPort string, to NodeID, toPort string) {
	d.Edges = append(d.Edges, Edge{From: from, To: to, FromPort: fromPort, ToPort: toPort})
	d.Metadata.UpdatedAt = time.Now().UTC()
}

// Equal reports structural equality of two definitions, timestamps included.
func (d *Definition) Equal(other *Definition) bool {
	if d == nil || other == nil {
		return d == other
	}
	return reflect.DeepEqual(d.Metadata, other.Metadata) &&
		reflect.DeepEqual(d.Nodes, other.Nodes) &&
		reflect.DeepEqual(d.Edges, other.Edges)
}
