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
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/loom/compile"
	"github.com/poiesic/loom/core"
)

// run holds the mutable state of one graph execution.
type run struct {
	engine *Engine
	graph  *compile.Graph
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu       sync.Mutex
	failure  *NodeFailedError
	attempts map[core.NodeID]int
}

// execute runs the graph to a terminal state. One goroutine per node,
// one bounded channel per wire; the first node failure cancels the
// remaining tasks.
func (e *Engine) execute(parent context.Context, graph *compile.Graph) *RunOutcome {
	started := time.Now().UTC()

	var runCtx context.Context
	var cancel context.CancelFunc
	if e.cfg.DefaultTimeout > 0 {
		runCtx, cancel = context.WithTimeout(parent, e.cfg.DefaultTimeout)
	} else {
		runCtx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	r := &run{
		engine:   e,
		graph:    graph,
		ctx:      runCtx,
		cancel:   cancel,
		logger:   e.logger.With("graph", graph.Name()),
		attempts: make(map[core.NodeID]int),
	}

	r.logger.Info("run started", "nodes", graph.Len(), "wires", len(graph.Wires()))

	wires := graph.Wires()
	chans := make([]chan []core.Item, len(wires))
	for i := range wires {
		chans[i] = make(chan []core.Item, e.cfg.QueueCapacity)
	}

	inputs := make(map[core.NodeID][]chan []core.Item)
	outputs := make(map[core.NodeID][]chan []core.Item)
	for i, w := range wires {
		outputs[w.From] = append(outputs[w.From], chans[i])
		inputs[w.To] = append(inputs[w.To], chans[i])
	}

	var wg sync.WaitGroup
	for _, id := range graph.Order() {
		node, ok := graph.Node(id)
		if !ok {
			continue
		}
		in := r.fanIn(inputs[id])
		outs := outputs[id]

		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runNode(node, in, outs)
		}()
	}
	wg.Wait()

	outcome := &RunOutcome{
		Started:  started,
		Finished: time.Now().UTC(),
		Attempts: r.attempts,
	}
	switch {
	case r.failure != nil:
		outcome.State = RunFailed
		outcome.FailedNode = r.failure.Node
		outcome.Message = r.failure.Err.Error()
		r.logger.Error("run failed", "node", r.failure.Node, "err", r.failure.Err)
	case errors.Is(context.Cause(runCtx), context.DeadlineExceeded):
		outcome.State = RunTimedOut
		r.logger.Warn("run timed out", "timeout", e.cfg.DefaultTimeout)
	case runCtx.Err() != nil:
		outcome.State = RunCancelled
		r.logger.Info("run cancelled")
	default:
		outcome.State = RunCompleted
		r.logger.Info("run completed", "duration", outcome.Duration())
	}
	return outcome
}

// runNode drives one node to completion. The node owns its outgoing
// channels and closes them on exit so downstream readers unblock even
// when the node fails.
func (r *run) runNode(node *compile.Node, in <-chan []core.Item, outs []chan []core.Item) {
	defer func() {
		for _, ch := range outs {
			close(ch)
		}
	}()

	switch node.Role {
	case compile.RoleSource:
		// A source reads from its backend, never from the graph.
		go func() {
			for range in {
			}
		}()
		err := r.retry(node.ID, func() error {
			return node.Source.ForEach(r.ctx, func(items []core.Item) error {
				if !r.broadcast(outs, items) {
					return r.ctx.Err()
				}
				return nil
			})
		})
		if err != nil {
			r.fail(node.ID, err)
		}

	case compile.RoleProcessor:
		for batch := range in {
			var out []core.Item
			err := r.retry(node.ID, func() error {
				var perr error
				out, perr = node.Processor.Process(r.ctx, batch)
				return perr
			})
			if err != nil {
				r.fail(node.ID, err)
				return
			}
			if len(out) == 0 {
				continue
			}
			if !r.broadcast(outs, out) {
				return
			}
		}

	case compile.RoleSink:
		for batch := range in {
			err := r.retry(node.ID, func() error {
				return node.Sink.Write(r.ctx, batch)
			})
			if err != nil {
				r.fail(node.ID, err)
				return
			}
		}

	case compile.RoleRelay:
		// Cache endpoints forward batches unchanged. A producer relay
		// with no consumer wire drops its items here.
		for batch := range in {
			if !r.broadcast(outs, batch) {
				return
			}
		}
	}
}

// broadcast delivers a batch to every outgoing wire, blocking under
// backpressure. Consumers past the first receive their own deep copy so
// downstream mutation stays local. Returns false once the run context
// is done.
func (r *run) broadcast(outs []chan []core.Item, batch []core.Item) bool {
	for i, ch := range outs {
		b := batch
		if i > 0 {
			b = core.CloneItems(batch)
		}
		select {
		case ch <- b:
		case <-r.ctx.Done():
			return false
		}
	}
	return true
}

// fanIn merges a node's incoming wires into one channel. Within a wire
// delivery order is emission order; across wires batches interleave
// arbitrarily.
func (r *run) fanIn(chans []chan []core.Item) <-chan []core.Item {
	switch len(chans) {
	case 0:
		done := make(chan []core.Item)
		close(done)
		return done
	case 1:
		return chans[0]
	}

	merged := make(chan []core.Item)
	var wg sync.WaitGroup
	for _, ch := range chans {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range ch {
				select {
				case merged <- batch:
				case <-r.ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}

// retry wraps a batch operation in the configured retry policy,
// counting attempts against the node.
func (r *run) retry(node core.NodeID, op func() error) error {
	return retryFixed(r.ctx, op, 1+r.engine.cfg.MaxRetries, r.engine.cfg.RetryDelay, func() {
		r.mu.Lock()
		r.attempts[node]++
		r.mu.Unlock()
	})
}

// fail records the first real node failure and cancels the run.
// Context errors observed after the run is already winding down are not
// failures of the node that reports them.
func (r *run) fail(node core.NodeID, err error) {
	if (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && r.ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	if r.failure == nil {
		r.failure = &NodeFailedError{Node: node, Err: err}
	}
	r.mu.Unlock()
	r.cancel()
}
