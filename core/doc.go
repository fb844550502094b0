// Package core provides the foundational types and collaborator interfaces
// used by nodemesh. It defines the boundary abstractions for:
//
//   - Node collaborators (NodeBase, NodeGraph, NodeTopics, NodeTimers,
//     NodeServices, NodeClock) that build endpoints for a node
//   - Quality of service (QoS and the legacy Profile form)
//   - Type support (runtime type identifiers plus marshal/unmarshal closures)
//   - Managed entities whose activity is toggled by lifecycle transitions
//   - Transport construction errors
//
// The package keeps implementation concerns (transports, parameter stores,
// concrete endpoints) out of scope, exposing small interfaces so that
// alternative middleware backends can be plugged in.
package core
