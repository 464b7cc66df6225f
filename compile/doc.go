// Package compile turns a core.Definition into an executable Graph.
//
// Compilation validates the definition, resolves cache slots into direct
// wires, orders the graph topologically (rejecting cycles), and
// instantiates a connected provider client or model-backed processor for
// every node. The resulting Graph is immutable; closing it releases the
// provider connections it opened.
package compile
