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
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateDefinition validates a Definition according to structural rules.
//
// Validation rules:
//   - every node definition must be well-formed (see ValidateNodeDef)
//   - every edge endpoint must reference an existing node
//
// NOT validated here (compiler's responsibility, since cache-resolved
// edges are needed first):
//   - acyclicity
//   - cache-slot producer/consumer matching
func ValidateDefinition(d *Definition) error {
	if d == nil {
		return fmt.Errorf("%w: definition is nil", ErrInvalidDefinition)
	}

	for id, def := range d.Nodes {
		if err := ValidateNodeDef(def); err != nil {
			return fmt.Errorf("%w: node %s: %w", ErrInvalidDefinition, id, err)
		}
	}

	for _, e := range d.Edges {
		if _, ok := d.Nodes[e.From]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidDefinition, ErrUnknownNode, e.From)
		}
		if _, ok := d.Nodes[e.To]; !ok {
			return fmt.Errorf("%w: %w: %s", ErrInvalidDefinition, ErrUnknownNode, e.To)
		}
	}

	return nil
}

// ValidateNodeDef validates a single node definition: the Kind tag must
// match exactly one populated role, the role's own discriminator must
// match its populated variant, and provider/transform parameters must
// pass field validation.
func ValidateNodeDef(def *NodeDef) error {
	if def == nil {
		return fmt.Errorf("node definition is nil")
	}

	switch def.Kind {
	case KindInput:
		if def.Input == nil || def.Transform != nil || def.Output != nil {
			return fmt.Errorf("input node must carry exactly an input definition")
		}
		return validateInput(def.Input)
	case KindTransform:
		if def.Transform == nil || def.Input != nil || def.Output != nil {
			return fmt.Errorf("transform node must carry exactly a transform definition")
		}
		return validateTransform(def.Transform)
	case KindOutput:
		if def.Output == nil || def.Input != nil || def.Transform != nil {
			return fmt.Errorf("output node must carry exactly an output definition")
		}
		return validateOutput(def.Output)
	default:
		return fmt.Errorf("unknown node kind %q", def.Kind)
	}
}

func validateInput(in *InputDef) error {
	switch in.Source {
	case InputProvider:
		if in.Provider == nil {
			return fmt.Errorf("input source %q requires provider params", in.Source)
		}
		return ValidateProviderParams(in.Provider)
	case InputCacheSlot:
		if in.CacheSlot == nil {
			return fmt.Errorf("input source %q requires a cache slot", in.Source)
		}
		return validateSlot(in.CacheSlot)
	default:
		return fmt.Errorf("unknown input source %q", in.Source)
	}
}

func validateOutput(out *OutputDef) error {
	switch out.Target {
	case OutputProvider:
		if out.Provider == nil {
			return fmt.Errorf("output target %q requires provider params", out.Target)
		}
		return ValidateProviderParams(out.Provider)
	case OutputCache:
		if out.Cache == nil {
			return fmt.Errorf("output target %q requires a cache slot", out.Target)
		}
		return validateSlot(out.Cache)
	default:
		return fmt.Errorf("unknown output target %q", out.Target)
	}
}

func validateTransform(tr *TransformDef) error {
	var cfg any
	switch tr.Type {
	case TransformPartition:
		// Partition config is optional; every field has a default.
		return nil
	case TransformChunk:
		if tr.Chunk != nil && tr.Chunk.Overlap >= tr.Chunk.Size && tr.Chunk.Size > 0 {
			return fmt.Errorf("chunk overlap %d must be smaller than size %d", tr.Chunk.Overlap, tr.Chunk.Size)
		}
		return nil
	case TransformEmbedding:
		if tr.Embedding == nil {
			return fmt.Errorf("embedding transform requires config")
		}
		cfg = tr.Embedding
	case TransformEnrich:
		if tr.Enrich == nil {
			return fmt.Errorf("enrich transform requires config")
		}
		cfg = tr.Enrich
	case TransformExtract:
		if tr.Extract == nil {
			return fmt.Errorf("extract transform requires config")
		}
		cfg = tr.Extract
	case TransformDerive:
		if tr.Derive == nil {
			return fmt.Errorf("derive transform requires config")
		}
		cfg = tr.Derive
	default:
		return fmt.Errorf("unknown transform type %q", tr.Type)
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%s config: %w", tr.Type, err)
	}
	return nil
}

// ValidateProviderParams validates provider params: required fields plus
// a known backend kind.
func ValidateProviderParams(p *ProviderParams) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if !slices.Contains(KnownBackends(), p.Backend) {
		return fmt.Errorf("%w: %q", ErrUnknownBackend, p.Backend)
	}
	return nil
}

func validateSlot(s *CacheSlot) error {
	if s.Slot == "" {
		return ErrEmptySlot
	}
	return nil
}
