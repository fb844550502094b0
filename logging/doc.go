// Package logging provides a minimal logging interface and adapters for nodemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that nodes, registries and transports use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NodeLogger with node/entity scoped attributes and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	n := nodemesh.New("talker", func(o *nodemesh.Options) { o.Logger = logger })
//
// The interface stays minimal to avoid vendor lock-in while supporting
// structured logging where available.
package logging
