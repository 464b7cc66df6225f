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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// The wire form of a node is flat: the role discriminator ("kind") sits
// next to the role's own discriminator ("source", "type", or "target")
// and the variant payload. Unknown fields are rejected, not ignored: a
// definition an editor round-trips must not silently lose configuration.

type nodeDefJSON struct {
	Kind NodeKind `json:"kind"`

	// Input fields
	Source    InputSource `json:"source,omitempty"`
	CacheSlot *CacheSlot  `json:"cache_slot,omitempty"`

	// Output fields
	Target OutputTarget `json:"target,omitempty"`
	Cache  *CacheSlot   `json:"cache,omitempty"`

	// Shared by provider-backed inputs and outputs
	Provider *ProviderParams `json:"provider,omitempty"`

	// Transform fields
	Type      TransformType    `json:"type,omitempty"`
	Partition *PartitionConfig `json:"partition,omitempty"`
	Chunk     *ChunkConfig     `json:"chunk,omitempty"`
	Embedding *EmbeddingConfig `json:"embedding,omitempty"`
	Enrich    *EnrichConfig    `json:"enrich,omitempty"`
	Extract   *ExtractConfig   `json:"extract,omitempty"`
	Derive    *DeriveConfig    `json:"derive,omitempty"`
}

// MarshalJSON implements json.Marshaler with the flat discriminated form.
func (n *NodeDef) MarshalJSON() ([]byte, error) {
	out := nodeDefJSON{Kind: n.Kind}
	switch n.Kind {
	case KindInput:
		if n.Input == nil {
			return nil, fmt.Errorf("input node without input definition")
		}
		out.Source = n.Input.Source
		out.Provider = n.Input.Provider
		out.CacheSlot = n.Input.CacheSlot
	case KindTransform:
		if n.Transform == nil {
			return nil, fmt.Errorf("transform node without transform definition")
		}
		out.Type = n.Transform.Type
		out.Partition = n.Transform.Partition
		out.Chunk = n.Transform.Chunk
		out.Embedding = n.Transform.Embedding
		out.Enrich = n.Transform.Enrich
		out.Extract = n.Transform.Extract
		out.Derive = n.Transform.Derive
	case KindOutput:
		if n.Output == nil {
			return nil, fmt.Errorf("output node without output definition")
		}
		out.Target = n.Output.Target
		out.Provider = n.Output.Provider
		out.Cache = n.Output.Cache
	default:
		return nil, fmt.Errorf("unknown node kind %q", n.Kind)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler, rejecting unknown fields.
func (n *NodeDef) UnmarshalJSON(data []byte) error {
	var raw nodeDefJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	*n = NodeDef{Kind: raw.Kind}
	switch raw.Kind {
	case KindInput:
		n.Input = &InputDef{Source: raw.Source, Provider: raw.Provider, CacheSlot: raw.CacheSlot}
	case KindTransform:
		n.Transform = &TransformDef{
			Type:      raw.Type,
			Partition: raw.Partition,
			Chunk:     raw.Chunk,
			Embedding: raw.Embedding,
			Enrich:    raw.Enrich,
			Extract:   raw.Extract,
			Derive:    raw.Derive,
		}
	case KindOutput:
		n.Output = &OutputDef{Target: raw.Target, Provider: raw.Provider, Cache: raw.Cache}
	default:
		return fmt.Errorf("%w: unknown node kind %q", ErrInvalidDefinition, raw.Kind)
	}
	return nil
}

type definitionJSON struct {
	Metadata Metadata            `json:"metadata"`
	Nodes    map[NodeID]*NodeDef `json:"nodes"`
	Edges    []Edge              `json:"edges,omitempty"`
}

// MarshalDefinition serializes a Definition to its JSON wire form.
func MarshalDefinition(d *Definition) ([]byte, error) {
	return json.Marshal(definitionJSON{Metadata: d.Metadata, Nodes: d.Nodes, Edges: d.Edges})
}

// UnmarshalDefinition deserializes a Definition from its JSON wire form
// and validates it structurally. Unknown fields fail the decode.
func UnmarshalDefinition(data []byte) (*Definition, error) {
	return DecodeDefinition(bytes.NewReader(data))
}

// EncodeDefinition writes a Definition to w as indented JSON.
func EncodeDefinition(w io.Writer, d *Definition) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(definitionJSON{Metadata: d.Metadata, Nodes: d.Nodes, Edges: d.Edges})
}

// DecodeDefinition reads a Definition from r, rejecting unknown fields,
// and validates it structurally.
func DecodeDefinition(r io.Reader) (*Definition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	// Decoding "nodes" into a map would keep the last entry when the
	// same id appears twice, so repeats are caught on the raw tokens
	// before the strict decode runs.
	if id, found := duplicateNodeID(data); found {
		return nil, fmt.Errorf("%w: %w: %s", ErrInvalidDefinition, ErrDuplicateNode, id)
	}

	var raw definitionJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	d := &Definition{Metadata: raw.Metadata, Nodes: raw.Nodes, Edges: raw.Edges}
	if d.Nodes == nil {
		d.Nodes = make(map[NodeID]*NodeDef)
	}
	if err := ValidateDefinition(d); err != nil {
		return nil, err
	}
	return d, nil
}

// duplicateNodeID walks the raw tokens of the top-level "nodes" object
// and reports the first repeated key. Malformed input is left for the
// strict decode to report.
func duplicateNodeID(data []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return "", false
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return "", false
		}
		key, ok := keyTok.(string)
		if !ok {
			return "", false
		}
		if key != "nodes" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return "", false
			}
			continue
		}

		tok, err := dec.Token()
		if err != nil || tok != json.Delim('{') {
			return "", false
		}
		seen := make(map[string]struct{})
		for dec.More() {
			idTok, err := dec.Token()
			if err != nil {
				return "", false
			}
			id, ok := idTok.(string)
			if !ok {
				return "", false
			}
			if _, dup := seen[id]; dup {
				return id, true
			}
			seen[id] = struct{}{}
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return "", false
			}
		}
		return "", false
	}
	return "", false
}
