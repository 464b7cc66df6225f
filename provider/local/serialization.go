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


package local

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/loom/core"
)

// storedItem is the value format for one key in the store. Payload and
// text piggyback on the string serializer, which is byte-exact. The
// vector is stored too, so a local sink fed by an embedding node reads
// back exactly what was written.
type storedItem struct {
	Data      string
	Text      string
	Metadata  map[string]string
	Vector    []float32
	UpdatedAt int64 // unix micro
}

var (
	metadataSer = ord.NewMapSer[string, string](ord.String, ord.String)
	vectorSer   = ord.NewSliceSer[float32](raw.Float32)
)

func marshalItem(item core.Item, updatedAt int64) []byte {
	s := storedItem{
		Data:      string(item.Data),
		Text:      item.Text,
		Metadata:  item.Metadata,
		Vector:    item.Vector,
		UpdatedAt: updatedAt,
	}

	size := ord.String.Size(s.Data) +
		ord.String.Size(s.Text) +
		metadataSer.Size(s.Metadata) +
		vectorSer.Size(s.Vector) +
		varint.Int64.Size(s.UpdatedAt)

	buf := make([]byte, size)
	n := ord.String.Marshal(s.Data, buf)
	n += ord.String.Marshal(s.Text, buf[n:])
	n += metadataSer.Marshal(s.Metadata, buf[n:])
	n += vectorSer.Marshal(s.Vector, buf[n:])
	varint.Int64.Marshal(s.UpdatedAt, buf[n:])
	return buf
}

func unmarshalItem(key string, buf []byte) (core.Item, error) {
	data, n, err := ord.String.Unmarshal(buf)
	if err != nil {
		return core.Item{}, err
	}
	text, m, err := ord.String.Unmarshal(buf[n:])
	if err != nil {
		return core.Item{}, err
	}
	n += m
	metadata, m, err := metadataSer.Unmarshal(buf[n:])
	if err != nil {
		return core.Item{}, err
	}
	n += m
	vector, m, err := vectorSer.Unmarshal(buf[n:])
	if err != nil {
		return core.Item{}, err
	}
	n += m
	if _, _, err := varint.Int64.Unmarshal(buf[n:]); err != nil {
		return core.Item{}, err
	}

	item := core.Item{Key: key, Text: text, Metadata: metadata}
	if data != "" {
		item.Data = []byte(data)
	}
	if len(vector) > 0 {
		item.Vector = vector
	}
	return item, nil
}
