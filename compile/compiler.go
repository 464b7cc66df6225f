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


package compile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/loom/ai"
	"github.com/poiesic/loom/ai/openai"
	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
	"github.com/poiesic/loom/transform"
)

// ModelProvider builds the model handles that embedding, enrich, and
// extract transforms run with. The default provider targets
// OpenAI-compatible APIs; tests inject doubles.
type ModelProvider interface {
	Embedder(cfg *ai.Config) (ai.Embedder, error)
	Generator(cfg *ai.Config) (ai.Generator, error)
}

type openaiModels struct{}

func (openaiModels) Embedder(cfg *ai.Config) (ai.Embedder, error) {
	return openai.NewEmbedder(cfg)
}

func (openaiModels) Generator(cfg *ai.Config) (ai.Generator, error) {
	return openai.NewGenerator(cfg)
}

// Option configures a compile.
type Option func(*compiler)

// WithModelProvider replaces the default OpenAI-backed model provider.
func WithModelProvider(mp ModelProvider) Option {
	return func(c *compiler) { c.models = mp }
}

// WithVerify runs Factory.Verify against each provider node's
// credentials before connecting.
func WithVerify() Option {
	return func(c *compiler) { c.verify = true }
}

// WithLogger sets the compile logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *compiler) { c.logger = logger }
}

type compiler struct {
	factories *provider.Factories
	registry  *provider.Registry
	models    ModelProvider
	verify    bool
	logger    *slog.Logger

	clients []provider.Client
}

// Compile turns a Definition into an executable Graph.
//
// It validates the definition structurally, resolves cache slots into
// wires, rejects cycles, then instantiates a connected client or
// processor per node. Connections opened before a failure are closed
// again; compilation itself is never retried internally.
func Compile(ctx context.Context, def *core.Definition, factories *provider.Factories, registry *provider.Registry, opts ...Option) (*Graph, error) {
	if err := core.ValidateDefinition(def); err != nil {
		return nil, err
	}

	c := &compiler{
		factories: factories,
		registry:  registry,
		models:    openaiModels{},
		logger:    slog.Default().With("component", "compiler"),
	}
	for _, opt := range opts {
		opt(c)
	}

	wires := make([]Wire, 0, len(def.Edges))
	for _, e := range def.Edges {
		wires = append(wires, Wire{From: e.From, To: e.To, FromPort: e.FromPort, ToPort: e.ToPort})
	}
	cached, err := resolveSlots(def)
	if err != nil {
		return nil, err
	}
	wires = append(wires, cached...)

	ids := make([]core.NodeID, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	order, err := topoSort(ids, wires)
	if err != nil {
		return nil, err
	}

	nodes := make(map[core.NodeID]*Node, len(def.Nodes))
	for _, id := range order {
		node, err := c.compileNode(ctx, id, def.Nodes[id])
		if err != nil {
			c.closeAll()
			return nil, err
		}
		nodes[id] = node
	}

	c.logger.Info("graph compiled",
		"definition", def.Metadata.Name,
		"nodes", len(nodes),
		"wires", len(wires),
		"cached_wires", len(cached))

	return &Graph{
		name:    def.Metadata.Name,
		nodes:   nodes,
		order:   order,
		wires:   wires,
		clients: c.clients,
	}, nil
}

func (c *compiler) compileNode(ctx context.Context, id core.NodeID, def *core.NodeDef) (*Node, error) {
	switch def.Kind {
	case core.KindInput:
		if def.Input.Source == core.InputCacheSlot {
			return &Node{ID: id, Role: RoleRelay}, nil
		}
		client, err := c.connect(ctx, *def.Input.Provider)
		if err != nil {
			return nil, newNodeConfigError(id, err)
		}
		source, ok := client.(provider.Source)
		if !ok {
			return nil, newNodeConfigError(id, fmt.Errorf("%w: %s", provider.ErrNotASource, client.Kind()))
		}
		return &Node{ID: id, Role: RoleSource, Source: source}, nil

	case core.KindOutput:
		if def.Output.Target == core.OutputCache {
			return &Node{ID: id, Role: RoleRelay}, nil
		}
		client, err := c.connect(ctx, *def.Output.Provider)
		if err != nil {
			return nil, newNodeConfigError(id, err)
		}
		sink, ok := client.(provider.Sink)
		if !ok {
			return nil, newNodeConfigError(id, fmt.Errorf("%w: %s", provider.ErrNotASink, client.Kind()))
		}
		return &Node{ID: id, Role: RoleSink, Sink: sink}, nil

	case core.KindTransform:
		processor, err := c.buildProcessor(def.Transform)
		if err != nil {
			return nil, newNodeConfigError(id, err)
		}
		return &Node{ID: id, Role: RoleProcessor, Processor: processor}, nil

	default:
		return nil, newNodeConfigError(id, fmt.Errorf("unknown node kind %q", def.Kind))
	}
}

// connect resolves credentials and opens a client. Credential lookup
// happens first: a bad reference must surface without touching the
// backend.
func (c *compiler) connect(ctx context.Context, params core.ProviderParams) (provider.Client, error) {
	factory, err := c.factories.Lookup(params.Backend)
	if err != nil {
		return nil, err
	}

	creds, err := c.registry.Lookup(params.CredentialRef)
	if err != nil {
		return nil, err
	}

	if c.verify {
		if err := factory.Verify(ctx, creds); err != nil {
			return nil, err
		}
	}

	client, err := factory.Connect(ctx, params, creds)
	if err != nil {
		return nil, err
	}

	c.clients = append(c.clients, client)
	c.logger.Debug("provider connected", "backend", params.Backend)
	return client, nil
}

func (c *compiler) buildProcessor(def *core.TransformDef) (transform.Processor, error) {
	switch def.Type {
	case core.TransformPartition:
		return transform.NewPartition(def.Partition)
	case core.TransformChunk:
		return transform.NewChunk(def.Chunk)
	case core.TransformEmbedding:
		cfg, err := c.modelConfig(def.Embedding.Model, def.Embedding.CredentialRef)
		if err != nil {
			return nil, err
		}
		embedder, err := c.models.Embedder(cfg)
		if err != nil {
			return nil, err
		}
		return transform.NewEmbedding(def.Embedding, embedder)
	case core.TransformEnrich:
		cfg, err := c.modelConfig(def.Enrich.Model, def.Enrich.CredentialRef)
		if err != nil {
			return nil, err
		}
		generator, err := c.models.Generator(cfg)
		if err != nil {
			return nil, err
		}
		return transform.NewEnrich(def.Enrich, generator)
	case core.TransformExtract:
		cfg, err := c.modelConfig(def.Extract.Model, def.Extract.CredentialRef)
		if err != nil {
			return nil, err
		}
		generator, err := c.models.Generator(cfg)
		if err != nil {
			return nil, err
		}
		return transform.NewExtract(def.Extract, generator)
	case core.TransformDerive:
		return transform.NewDerive(def.Derive)
	default:
		return nil, fmt.Errorf("unknown transform type %q", def.Type)
	}
}

// modelConfig resolves a transform's credential reference into a model
// configuration. Token falls back from Token to APIKey; Endpoint, when
// set, overrides the default API host.
func (c *compiler) modelConfig(model, credentialRef string) (*ai.Config, error) {
	creds, err := c.registry.Lookup(credentialRef)
	if err != nil {
		return nil, err
	}
	token := creds.Token
	if token == "" {
		token = creds.APIKey
	}
	return &ai.Config{Host: creds.Endpoint, Model: model, Token: token}, nil
}

func (c *compiler) closeAll() {
	for _, client := range c.clients {
		if err := client.Close(); err != nil {
			c.logger.Warn("closing client after failed compile", "backend", client.Kind(), "err", err)
		}
	}
	c.clients = nil
}
