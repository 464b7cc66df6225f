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
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// NodeID identifies a graph vertex. It is the string form of a UUIDv7,
// so IDs are time-ordered: ascending lexicographic order is creation
// order. A NodeID is assigned when a node is added to a Definition and
// is never reused.
type NodeID string

// NewNodeID generates a fresh time-ordered NodeID.
func NewNodeID() NodeID {
	return NodeID(uuid.Must(uuid.NewV7()).String())
}

// ID is a content-derived identifier for items moving through a pipeline.
type ID uint64

// IDFromContent generates a deterministic ID from bytes using BLAKE2b hashing.
// Identical content always produces the same ID.
func IDFromContent(data []byte) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write(data)
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Backend identifies an external system behind a provider node.
type Backend string

const (
	BackendS3        Backend = "s3"
	BackendAzureBlob Backend = "azure_blob"
	BackendGCS       Backend = "gcs"
	BackendPostgres  Backend = "postgres"
	BackendMySQL     Backend = "mysql"
	BackendQdrant    Backend = "qdrant"
	BackendPinecone  Backend = "pinecone"
	BackendMilvus    Backend = "milvus"
	BackendPGVector  Backend = "pgvector"
	BackendLocal     Backend = "local"
)

// KnownBackends lists every backend kind a Definition may reference.
func KnownBackends() []Backend {
	return []Backend{
		BackendS3, BackendAzureBlob, BackendGCS,
		BackendPostgres, BackendMySQL,
		BackendQdrant, BackendPinecone, BackendMilvus, BackendPGVector,
		BackendLocal,
	}
}

// Item is the unit of data that flows between pipeline nodes.
// Sources produce items, processors enrich or split them, sinks persist them.
type Item struct {
	Key      string            // Object key or row key in the originating backend
	Data     []byte            // Raw payload as read from the source
	Text     string            // Extracted or derived text (populated by processors)
	Vector   []float32         // Embedding vector (populated by the embedding processor)
	Metadata map[string]string // Free-form annotations carried across nodes
}

// Fingerprint returns a content-derived ID for the item, covering key,
// payload, and text. Processors use it to recognize already-processed
// items across retries; sinks use it as an upsert key.
func (it *Item) Fingerprint() ID {
	buf := make([]byte, 0, len(it.Key)+len(it.Data)+len(it.Text)+2)
	buf = append(buf, it.Key...)
	buf = append(buf, 0)
	buf = append(buf, it.Data...)
	buf = append(buf, 0)
	buf = append(buf, it.Text...)
	return IDFromContent(buf)
}

// Clone returns a deep copy of the item. Node tasks that fan out to
// multiple consumers hand each consumer its own copy so downstream
// mutation stays local.
func (it *Item) Clone() Item {
	out := Item{
		Key:  it.Key,
		Text: it.Text,
	}
	if it.Data != nil {
		out.Data = make([]byte, len(it.Data))
		copy(out.Data, it.Data)
	}
	if it.Vector != nil {
		out.Vector = make([]float32, len(it.Vector))
		copy(out.Vector, it.Vector)
	}
	if it.Metadata != nil {
		out.Metadata = make(map[string]string, len(it.Metadata))
		for k, v := range it.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// CloneItems deep-copies a batch of items.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = items[i].Clone()
	}
	return out
}
