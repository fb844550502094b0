package endpoint

import (
	"fmt"

	"github.com/hupe1980/nodemesh/core"
)

// Publisher publishes messages of type M on one topic.
type Publisher[M any] struct {
	handle core.PublisherHandle
	ts     *core.TypeSupport
	closer *closer
}

// NewPublisher wraps a transport publisher handle. The handle is closed by
// Close or once the publisher becomes unreachable.
func NewPublisher[M any](h core.PublisherHandle, ts *core.TypeSupport) *Publisher[M] {
	p := &Publisher[M]{handle: h, ts: ts}
	p.closer = track(p, h.Close)
	return p
}

// Publish encodes msg and hands it to the transport.
func (p *Publisher[M]) Publish(msg M) error {
	if p.closer.isClosed() {
		return ErrClosed
	}
	sm, err := p.ts.Serialize(msg)
	if err != nil {
		return err
	}
	return p.handle.Publish(sm)
}

// PublishSerialized publishes an already encoded message of the publisher's
// type.
func (p *Publisher[M]) PublishSerialized(msg *core.SerializedMessage) error {
	if p.closer.isClosed() {
		return ErrClosed
	}
	return publishSerialized(p.handle, msg)
}

func (p *Publisher[M]) TopicName() string      { return p.handle.TopicName() }
func (p *Publisher[M]) TypeName() string       { return p.handle.TypeName() }
func (p *Publisher[M]) GID() string            { return p.handle.GID() }
func (p *Publisher[M]) QoS() core.QoS          { return p.handle.QoS() }
func (p *Publisher[M]) SubscriptionCount() int { return p.handle.SubscriptionCount() }

// Close releases the transport handle.
func (p *Publisher[M]) Close() error {
	return p.closer.Close()
}

// GenericPublisher publishes opaque serialized messages whose type is fixed
// by a runtime type name.
type GenericPublisher struct {
	handle core.PublisherHandle
	closer *closer
}

// NewGenericPublisher wraps a transport publisher handle.
func NewGenericPublisher(h core.PublisherHandle) *GenericPublisher {
	p := &GenericPublisher{handle: h}
	p.closer = track(p, h.Close)
	return p
}

// Publish hands msg to the transport. A message without a type name is
// stamped with the publisher's; a different type name is refused.
func (p *GenericPublisher) Publish(msg *core.SerializedMessage) error {
	if p.closer.isClosed() {
		return ErrClosed
	}
	return publishSerialized(p.handle, msg)
}

func (p *GenericPublisher) TopicName() string      { return p.handle.TopicName() }
func (p *GenericPublisher) TypeName() string       { return p.handle.TypeName() }
func (p *GenericPublisher) GID() string            { return p.handle.GID() }
func (p *GenericPublisher) QoS() core.QoS          { return p.handle.QoS() }
func (p *GenericPublisher) SubscriptionCount() int { return p.handle.SubscriptionCount() }

// Close releases the transport handle.
func (p *GenericPublisher) Close() error {
	return p.closer.Close()
}

func publishSerialized(h core.PublisherHandle, msg *core.SerializedMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", core.ErrInvalidArgument)
	}
	switch msg.TypeName {
	case h.TypeName():
	case "":
		msg = &core.SerializedMessage{TypeName: h.TypeName(), Data: msg.Data}
	default:
		return fmt.Errorf("%w: topic %s carries %s, got %s", core.ErrTypeConflict, h.TopicName(), h.TypeName(), msg.TypeName)
	}
	return h.Publish(msg)
}
