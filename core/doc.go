// Package core defines the data model for pipeline definitions.
//
// A Definition describes a document-processing pipeline as a directed graph
// of input, transform, and output nodes connected by edges. Definitions are
// pure values: they carry no secrets, perform no I/O, and are mutated only
// through helpers that edit the value in place. The JSON form produced by
// EncodeDefinition is the wire contract with editing frontends.
package core
