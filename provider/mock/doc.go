// Package mock provides test doubles for the provider boundary.
//
// Doubles follow the function-field pattern: zero-value defaults give
// deterministic in-memory behavior, and tests override individual methods
// by assigning the corresponding *Func field.
package mock
