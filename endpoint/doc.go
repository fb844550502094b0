// Package endpoint provides typed wrappers over the transport handles built
// by a node: publishers, subscriptions, timers and remote-call clients and
// services. Typed endpoints encode and decode payloads through the
// core.TypeSupport of their Go type; generic endpoints carry opaque
// core.SerializedMessage values identified by a runtime type name.
//
// Endpoints are safe for concurrent use. Close is idempotent and releases
// the underlying transport handle.
package endpoint
