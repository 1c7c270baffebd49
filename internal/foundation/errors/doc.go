// Package errors provides the classified error primitives used across assetbuilder.
//
// Errors carry a category (config, graph, processing, ...), a severity and a
// structured context map. The CLI adapter turns them into exit codes.
//
// Example usage:
//
//	err := errors.ConfigError("source section must be a mapping").
//		WithContext("file", path).
//		Build()
package errors
