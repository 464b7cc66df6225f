// Package transform implements the processors behind transform nodes.
//
// Every processor exposes one operation, Process, taking and returning a
// batch of items. Processors are resolved once at compile time, so the
// engine never inspects task kinds at run time, and are designed to be
// idempotent under retry: re-processing a batch after a failed attempt
// skips work that already completed (an item that has a vector is not
// re-embedded, an enriched field is not re-generated) so external model
// calls are not double-charged.
package transform
