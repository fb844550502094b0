// Package node binds endpoint construction, lifecycle registration and typed
// parameter access to one LifecycleNode.
//
// Factories are package level generic functions because Go methods cannot
// carry type parameters:
//
//	n, _ := node.New(node.WithTransport(t))
//	pub, err := node.CreatePublisher[Chatter](n, "chatter", core.KeepLast(10))
//	rate, err := node.DeclareParameter(n, "rate", 10)
//	_ = n.ActivateEntities()
//
// Publishers, subscriptions and the generic publisher are registered with the
// node's lifecycle registry and start inactive. Timers, generic
// subscriptions, clients and services are not lifecycle gated; use
// CreateLifecycleWallTimer for a timer that follows the node's state.
package node
