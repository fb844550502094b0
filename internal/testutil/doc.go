// Package testutil contains fake collaborators and builders used across
// tests to reduce boilerplate when constructing nodes, transports and
// parameter overrides. The fakes deliver synchronously and support failure
// injection per entity kind. They are not intended for production usage.
package testutil
