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


package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/loom/compile"
)

// Engine executes compiled graphs with bounded run concurrency.
type Engine struct {
	cfg    Config
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "engine")
		return nil
	}
}

// New creates an engine. The run pool holds one worker per concurrent
// run and rejects submissions beyond capacity rather than queueing them.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(cfg.MaxConcurrentRuns, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("run pool: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		pool:   pool,
		logger: slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return e, nil
}

// Run executes a compiled graph and blocks until it reaches a terminal
// state. When all run slots are busy it fails fast with ErrTooManyRuns.
// The returned outcome is non-nil whenever the run was admitted.
func (e *Engine) Run(ctx context.Context, graph *compile.Graph) (*RunOutcome, error) {
	if graph == nil {
		return nil, errors.New("nil graph")
	}

	done := make(chan *RunOutcome, 1)
	err := e.pool.Submit(func() {
		done <- e.execute(ctx, graph)
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, fmt.Errorf("%w: %d in flight", ErrTooManyRuns, e.cfg.MaxConcurrentRuns)
		}
		return nil, err
	}

	return <-done, nil
}

// Running returns how many runs are currently executing.
func (e *Engine) Running() int {
	return e.pool.Running()
}

// Close releases the run pool. In-flight runs finish; new submissions
// fail.
func (e *Engine) Close() {
	e.pool.Release()
}
