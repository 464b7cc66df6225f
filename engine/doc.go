// Package engine executes compiled graphs.
//
// Each run gives every graph node its own goroutine, connected by
// bounded channels along the compiled wires. Item batches flow from
// sources through processors into sinks; senders block under
// backpressure. Batch operations are retried with a fixed delay, and a
// node that exhausts its retries fails the whole run. Run capacity is
// bounded: submissions beyond the configured limit are rejected, not
// queued.
package engine
