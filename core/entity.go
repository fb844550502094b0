package core

// ManagedEntity is an endpoint whose activity can be toggled by lifecycle
// transitions. Implementations must be safe for concurrent use: a sweep may
// toggle an entity while its owner publishes or receives on it.
type ManagedEntity interface {
	// OnActivate enables the entity.
	OnActivate() error
	// OnDeactivate disables the entity.
	OnDeactivate() error
	// IsActivated reports the current activity state.
	IsActivated() bool
}

// EntityKind names the kind of endpoint a factory builds.
type EntityKind string

const (
	KindPublisher           EntityKind = "publisher"
	KindSubscription        EntityKind = "subscription"
	KindGenericPublisher    EntityKind = "generic_publisher"
	KindGenericSubscription EntityKind = "generic_subscription"
	KindTimer               EntityKind = "timer"
	KindWallTimer           EntityKind = "wall_timer"
	KindClient              EntityKind = "client"
	KindService             EntityKind = "service"
)
