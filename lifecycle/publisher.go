package lifecycle

import (
	"sync/atomic"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/endpoint"
	"github.com/hupe1980/nodemesh/logging"
)

var (
	_ core.ManagedEntity = (*LifecyclePublisher[struct{}])(nil)
	_ core.ManagedEntity = (*LifecycleGenericPublisher)(nil)
)

const inactivePublishWarning = "trying to publish on an inactive publisher, messages are dropped"

// inactiveGuard drops publications while inactive and warns once per
// inactive period.
type inactiveGuard struct {
	SimpleManagedEntity
	warned  atomic.Bool
	dropped atomic.Uint64
	logger  logging.Logger
}

func (g *inactiveGuard) OnDeactivate() error {
	g.warned.Store(false)
	return g.SimpleManagedEntity.OnDeactivate()
}

// admit reports whether a publication may pass.
func (g *inactiveGuard) admit(topic string) bool {
	if g.IsActivated() {
		return true
	}
	g.dropped.Add(1)
	if g.warned.CompareAndSwap(false, true) {
		g.logger.Warn(inactivePublishWarning, "topic", topic)
	}
	return false
}

// Dropped returns how many publications were dropped while inactive.
func (g *inactiveGuard) Dropped() uint64 { return g.dropped.Load() }

// LifecyclePublisher is a Publisher that only publishes while activated.
// It starts inactive.
type LifecyclePublisher[M any] struct {
	*endpoint.Publisher[M]
	inactiveGuard
}

// NewLifecyclePublisher decorates pub. The decorator is the only owner of
// pub, so releasing it releases the transport handle.
func NewLifecyclePublisher[M any](pub *endpoint.Publisher[M], logger logging.Logger) *LifecyclePublisher[M] {
	lp := &LifecyclePublisher[M]{Publisher: pub}
	lp.logger = logging.OrNoOp(logger)
	return lp
}

// Publish publishes msg while active and drops it otherwise.
func (p *LifecyclePublisher[M]) Publish(msg M) error {
	if !p.admit(p.TopicName()) {
		return nil
	}
	return p.Publisher.Publish(msg)
}

// PublishSerialized publishes an encoded message while active.
func (p *LifecyclePublisher[M]) PublishSerialized(msg *core.SerializedMessage) error {
	if !p.admit(p.TopicName()) {
		return nil
	}
	return p.Publisher.PublishSerialized(msg)
}

// LifecycleGenericPublisher is a GenericPublisher that only publishes while
// activated. It starts inactive.
type LifecycleGenericPublisher struct {
	*endpoint.GenericPublisher
	inactiveGuard
}

// NewLifecycleGenericPublisher decorates pub.
func NewLifecycleGenericPublisher(pub *endpoint.GenericPublisher, logger logging.Logger) *LifecycleGenericPublisher {
	lp := &LifecycleGenericPublisher{GenericPublisher: pub}
	lp.logger = logging.OrNoOp(logger)
	return lp
}

// Publish publishes msg while active and drops it otherwise.
func (p *LifecycleGenericPublisher) Publish(msg *core.SerializedMessage) error {
	if !p.admit(p.TopicName()) {
		return nil
	}
	return p.GenericPublisher.Publish(msg)
}
