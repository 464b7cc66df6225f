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

import "errors"

// Definition validation errors
var (
	// ErrInvalidDefinition indicates a Definition failed structural
	// validation: bad node configuration, a dangling edge endpoint, an
	// unresolved cache slot, or a cycle.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrUnknownNode indicates an edge endpoint references a NodeID that
	// is not part of the definition.
	ErrUnknownNode = errors.New("edge references unknown node")

	// ErrDuplicateNode indicates the JSON wire form declares the same
	// node id more than once.
	ErrDuplicateNode = errors.New("duplicate node id")

	// ErrUnknownBackend indicates provider params name a backend kind
	// this build does not know.
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrEmptySlot indicates a cache slot with an empty name.
	ErrEmptySlot = errors.New("cache slot name cannot be empty")
)
