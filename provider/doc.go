// Package provider defines the boundary between compiled pipelines and
// external backends.
//
// Each backend subpackage exposes a Factory that combines non-sensitive
// ProviderParams from a definition with secret Credentials looked up in a
// Registry to produce a connected Client. Sources stream items in batches,
// sinks persist them; a backend offers whichever capabilities it supports
// and the compiler checks the rest.
//
// This split is the security boundary: params travel inside serialized
// definitions, credentials only ever live in the registry supplied by the
// caller.
package provider
