// Package types contains the core types and interfaces shared across the
// rolecall library.
//
// Keeping these definitions in a leaf package lets internal packages and the
// pluggable store/recommender implementations depend on them without pulling
// in the root rolecall package, which re-exports the most commonly used
// identifiers via type aliases for convenience.
package types
