package core

import (
	"context"
	"time"
)

// ClockType identifies the time source behind a Clock.
type ClockType int

const (
	// ClockSystemTime follows the wall clock.
	ClockSystemTime ClockType = iota
	// ClockSteadyTime is monotonic and unaffected by wall clock changes.
	ClockSteadyTime
	// ClockROSTime may be driven by an external time source.
	ClockROSTime
)

func (c ClockType) String() string {
	switch c {
	case ClockSystemTime:
		return "system"
	case ClockSteadyTime:
		return "steady"
	case ClockROSTime:
		return "ros"
	default:
		return "unknown"
	}
}

// Clock is a time source able to drive timers.
type Clock interface {
	Type() ClockType
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks at a fixed period.
type Ticker interface {
	C() <-chan time.Time
	Reset(d time.Duration)
	Stop()
}

// NodeBase exposes a node's identity.
type NodeBase interface {
	Name() string
	Namespace() string
	FullyQualifiedName() string
	InstanceID() string
}

// NodeGraph is a read-only view of the entities known to the transport.
type NodeGraph interface {
	TopicNamesAndTypes() map[string][]string
	ServiceNamesAndTypes() map[string][]string
	CountPublishers(topic string) int
	CountSubscribers(topic string) int
	ServiceIsAvailable(service string) bool
}

// NodeClock exposes the node's clock.
type NodeClock interface {
	Clock() Clock
}

// SerializedCallback receives one message as opaque bytes.
type SerializedCallback func(msg *SerializedMessage, info MessageInfo)

// NodeTopics builds publishers and subscriptions.
type NodeTopics interface {
	ResolveTopicName(name string) (string, error)
	CreatePublisher(topic string, ts *TypeSupport, qos QoS, opts PublisherOptions) (PublisherHandle, error)
	CreateSubscription(topic string, ts *TypeSupport, qos QoS, callback SerializedCallback, opts SubscriptionOptions) (SubscriptionHandle, error)
}

// PublisherHandle is the transport side of a publisher.
type PublisherHandle interface {
	TopicName() string
	TypeName() string
	GID() string
	QoS() QoS
	Publish(msg *SerializedMessage) error
	SubscriptionCount() int
	Close() error
}

// SubscriptionHandle is the transport side of a subscription.
type SubscriptionHandle interface {
	TopicName() string
	TypeName() string
	QoS() QoS
	PublisherCount() int
	Close() error
}

// NodeTimers builds timers.
type NodeTimers interface {
	CreateTimer(clock Clock, period time.Duration, callback func(), opts TimerOptions) (TimerHandle, error)
}

// TimerHandle is the transport side of a timer.
type TimerHandle interface {
	Period() time.Duration
	Cancel()
	Reset()
	IsCanceled() bool
	TimeUntilTrigger() time.Duration
	Close() error
}

// ServiceHandler answers one serialized request.
type ServiceHandler func(ctx context.Context, request *SerializedMessage) (*SerializedMessage, error)

// NodeServices builds remote-call clients and servers.
type NodeServices interface {
	CreateClient(service string, ts *ServiceTypeSupport, qos QoS, opts ClientOptions) (ClientHandle, error)
	CreateService(service string, ts *ServiceTypeSupport, qos QoS, handler ServiceHandler, opts ServiceOptions) (ServiceHandle, error)
}

// ClientHandle is the transport side of a remote-call client.
type ClientHandle interface {
	ServiceName() string
	ServiceIsReady() bool
	Call(ctx context.Context, request *SerializedMessage) (*SerializedMessage, error)
	Close() error
}

// ServiceHandle is the transport side of a remote-call server.
type ServiceHandle interface {
	ServiceName() string
	Close() error
}
