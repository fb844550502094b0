// Package lifecycle holds the managed entity registry of a lifecycle node
// and the lifecycle-aware endpoint decorators it toggles.
//
// A Registry keeps weak handles: registering an entity never extends its
// lifetime, and entities released by their owner are skipped and pruned
// during the next sweep. A sweep (ActivateAll or DeactivateAll) toggles every
// live entity independently and reports every failure, joined.
//
// The decorators gate traffic on their activation state:
//
//	pub, _ := node.CreatePublisher[Chatter](n, "chatter", core.KeepLast(10))
//	pub.Publish(msg) // dropped with a warning while inactive
//	n.ActivateEntities()
//	pub.Publish(msg) // delivered
package lifecycle
