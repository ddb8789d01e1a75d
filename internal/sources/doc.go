// Package sources produces configuration sources from their media: process
// environment, settings files (JSON, YAML, TOML), developer secret files,
// command-line overrides and in-memory maps.
//
// Every provider hands the store a flat entry set. Nested documents are
// flattened depth first, each leaf keyed by the ':'-joined path from the root.
package sources
