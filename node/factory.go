package node

import (
	"context"
	"fmt"
	"io"
	"time"
	"weak"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/endpoint"
	"github.com/hupe1980/nodemesh/lifecycle"
	"github.com/hupe1980/nodemesh/logging"
)

// CreatePublisher builds a publisher of M on topic and registers it with the
// node's lifecycle registry. The publisher starts inactive unless the node's
// entities are active. Transport errors are returned unchanged and nothing is
// registered on failure.
func CreatePublisher[M any](n *LifecycleNode, topic string, qos core.QoS, optFns ...func(o *core.PublisherOptions)) (*lifecycle.LifecyclePublisher[M], error) {
	ts, err := typeSupportFor[M](core.KindPublisher, topic)
	if err != nil {
		n.entityCreated(core.KindPublisher, topic, core.TypeNameOf[M](), true, err)
		return nil, err
	}
	opts := core.PublisherOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	h, err := n.topics.CreatePublisher(topic, ts, qos, opts)
	if err != nil {
		n.entityCreated(core.KindPublisher, topic, ts.Name, true, err)
		return nil, err
	}
	pub := lifecycle.NewLifecyclePublisher(endpoint.NewPublisher[M](h, ts), n.entityLogger(h.TopicName()))
	lifecycle.Manage(n.registry, pub)
	n.entityCreated(core.KindPublisher, h.TopicName(), ts.Name, true, nil)
	return pub, nil
}

// CreateSubscription builds a subscription of M on topic and registers it.
// callback only runs while the subscription is active. With topic statistics
// enabled the subscription also publishes core.MetricsMessage values on the
// statistics topic every publish period.
func CreateSubscription[M any](n *LifecycleNode, topic string, qos core.QoS, callback func(M), optFns ...func(o *core.SubscriptionOptions)) (*lifecycle.LifecycleSubscription[M], error) {
	ts, err := typeSupportFor[M](core.KindSubscription, topic)
	if err != nil {
		n.entityCreated(core.KindSubscription, topic, core.TypeNameOf[M](), true, err)
		return nil, err
	}
	opts := core.SubscriptionOptions{
		MemoryStrategy:  core.DefaultMemoryStrategy{},
		TopicStatistics: core.DefaultTopicStatisticsOptions(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	stats := opts.TopicStatistics
	if stats.Enabled && stats.PublishPeriod <= 0 {
		err := fmt.Errorf("%w: topic statistics publish period must be positive, got %s", core.ErrInvalidArgument, stats.PublishPeriod)
		n.entityCreated(core.KindSubscription, topic, ts.Name, true, err)
		return nil, err
	}

	var collector *endpoint.StatisticsCollector
	onMessage := func(m M, _ core.MessageInfo) { callback(m) }
	if stats.Enabled {
		collector = endpoint.NewStatisticsCollector(n.FullyQualifiedName(), topic, n.steady)
		onMessage = func(m M, info core.MessageInfo) {
			collector.Observe(info)
			callback(m)
		}
	}

	logger := n.entityLogger(topic)
	state := lifecycle.NewActivation()
	cb := lifecycle.Gated(state, endpoint.Decode(ts, onMessage, func(err error) {
		logger.Warn("dropping undecodable message", "topic", topic, "type", ts.Name, "error", err.Error())
	}))

	h, err := n.topics.CreateSubscription(topic, ts, qos, cb, opts)
	if err != nil {
		n.entityCreated(core.KindSubscription, topic, ts.Name, true, err)
		return nil, err
	}
	sub := endpoint.NewSubscription[M](h)

	var attached []io.Closer
	if collector != nil {
		attached, err = n.startTopicStatistics(collector, stats)
		if err != nil {
			_ = sub.Close()
			n.entityCreated(core.KindSubscription, topic, ts.Name, true, err)
			return nil, err
		}
	}

	ls := lifecycle.NewLifecycleSubscription(sub, state, attached...)
	lifecycle.Manage(n.registry, ls)
	n.entityCreated(core.KindSubscription, h.TopicName(), ts.Name, true, nil)
	return ls, nil
}

// startTopicStatistics creates the statistics publisher and the wall timer
// publishing the collector's snapshot. The timer holds the collector weakly;
// it stops reporting once the subscription callback is gone.
func (n *LifecycleNode) startTopicStatistics(collector *endpoint.StatisticsCollector, stats core.TopicStatisticsOptions) ([]io.Closer, error) {
	ts, err := typeSupportFor[core.MetricsMessage](core.KindPublisher, stats.PublishTopic)
	if err != nil {
		return nil, err
	}
	ph, err := n.topics.CreatePublisher(stats.PublishTopic, ts, core.KeepLast(10), core.PublisherOptions{})
	if err != nil {
		return nil, err
	}
	pub := endpoint.NewPublisher[core.MetricsMessage](ph, ts)

	wc := weak.Make(collector)
	logger := n.entityLogger(pub.TopicName())
	th, err := n.timers.CreateTimer(n.steady, stats.PublishPeriod, func() {
		c := wc.Value()
		if c == nil {
			return
		}
		for _, m := range c.Snapshot() {
			if err := pub.Publish(m); err != nil {
				logger.Warn("failed to publish topic statistics", "topic", pub.TopicName(), "error", err.Error())
			}
		}
	}, core.TimerOptions{Autostart: true})
	if err != nil {
		_ = pub.Close()
		return nil, err
	}
	return []io.Closer{endpoint.NewTimer(th, n.steady.Type()), pub}, nil
}

// CreateGenericPublisher builds a publisher of opaque serialized messages of
// the runtime type typeName and registers it.
func CreateGenericPublisher(n *LifecycleNode, topic, typeName string, qos core.QoS, optFns ...func(o *core.PublisherOptions)) (*lifecycle.LifecycleGenericPublisher, error) {
	opts := core.PublisherOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	h, err := n.topics.CreatePublisher(topic, n.genericTypeSupport(typeName), qos, opts)
	if err != nil {
		n.entityCreated(core.KindGenericPublisher, topic, typeName, true, err)
		return nil, err
	}
	pub := lifecycle.NewLifecycleGenericPublisher(endpoint.NewGenericPublisher(h), n.entityLogger(h.TopicName()))
	lifecycle.Manage(n.registry, pub)
	n.entityCreated(core.KindGenericPublisher, h.TopicName(), typeName, true, nil)
	return pub, nil
}

// CreateGenericSubscription builds a subscription delivering opaque
// serialized messages of the runtime type typeName. It is not lifecycle
// gated.
func CreateGenericSubscription(n *LifecycleNode, topic, typeName string, qos core.QoS, callback func(*core.SerializedMessage), optFns ...func(o *core.SubscriptionOptions)) (*endpoint.GenericSubscription, error) {
	opts := core.SubscriptionOptions{MemoryStrategy: core.DefaultMemoryStrategy{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	h, err := n.topics.CreateSubscription(topic, n.genericTypeSupport(typeName), qos, func(msg *core.SerializedMessage, _ core.MessageInfo) {
		callback(msg)
	}, opts)
	if err != nil {
		n.entityCreated(core.KindGenericSubscription, topic, typeName, false, err)
		return nil, err
	}
	n.entityCreated(core.KindGenericSubscription, h.TopicName(), typeName, false, nil)
	return endpoint.NewGenericSubscription(h), nil
}

// genericTypeSupport resolves typeName in the node's type registry. Unknown
// names yield an opaque type support carrying only the name; the transport
// decides whether it can carry them.
func (n *LifecycleNode) genericTypeSupport(typeName string) *core.TypeSupport {
	if ts, ok := n.types.Lookup(typeName); ok {
		return ts
	}
	return &core.TypeSupport{Name: typeName}
}

// CreateWallTimer builds a timer on the steady clock. It is not lifecycle
// gated and starts immediately unless TimerOptions.Autostart is cleared.
func CreateWallTimer(n *LifecycleNode, period time.Duration, callback func(), optFns ...func(o *core.TimerOptions)) (*endpoint.Timer, error) {
	return n.createTimer(core.KindWallTimer, n.steady, period, callback, optFns)
}

// CreateTimer builds a timer on the node clock. It is not lifecycle gated.
func CreateTimer(n *LifecycleNode, period time.Duration, callback func(), optFns ...func(o *core.TimerOptions)) (*endpoint.Timer, error) {
	return n.createTimer(core.KindTimer, n.Clock(), period, callback, optFns)
}

func (n *LifecycleNode) createTimer(kind core.EntityKind, c core.Clock, period time.Duration, callback func(), optFns []func(o *core.TimerOptions)) (*endpoint.Timer, error) {
	if period <= 0 {
		err := fmt.Errorf("%w: timer period must be positive, got %s", core.ErrInvalidArgument, period)
		n.entityCreated(kind, period.String(), "", false, err)
		return nil, err
	}
	opts := core.TimerOptions{Autostart: true}
	for _, fn := range optFns {
		fn(&opts)
	}
	h, err := n.timers.CreateTimer(c, period, callback, opts)
	if err != nil {
		n.entityCreated(kind, period.String(), "", false, err)
		return nil, err
	}
	n.entityCreated(kind, period.String(), "", false, nil)
	return endpoint.NewTimer(h, c.Type()), nil
}

// CreateLifecycleWallTimer builds a steady clock timer that is registered
// with the lifecycle registry: it only runs while the node's entities are
// active.
func CreateLifecycleWallTimer(n *LifecycleNode, period time.Duration, callback func(), optFns ...func(o *core.TimerOptions)) (*lifecycle.LifecycleWallTimer, error) {
	state := lifecycle.NewActivation()
	optFns = append(optFns, func(o *core.TimerOptions) { o.Autostart = false })
	t, err := n.createTimer(core.KindWallTimer, n.steady, period, lifecycle.Gate(state, callback), optFns)
	if err != nil {
		return nil, err
	}
	lt := lifecycle.NewLifecycleWallTimer(t, state)
	lifecycle.Manage(n.registry, lt)
	return lt, nil
}

// CreateClient builds a remote-call client. It is not lifecycle gated.
func CreateClient[Req, Resp any](n *LifecycleNode, service string, qos core.QoS, optFns ...func(o *core.ClientOptions)) (*endpoint.Client[Req, Resp], error) {
	sts, err := serviceTypeSupportFor[Req, Resp](core.KindClient, service)
	if err != nil {
		return nil, err
	}
	opts := core.ClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	h, err := n.services.CreateClient(service, sts, qos, opts)
	if err != nil {
		n.entityCreated(core.KindClient, service, sts.Name, false, err)
		return nil, err
	}
	n.entityCreated(core.KindClient, h.ServiceName(), sts.Name, false, nil)
	return endpoint.NewClient[Req, Resp](h, sts), nil
}

// CreateClientWithProfile is CreateClient taking a legacy QoS profile.
func CreateClientWithProfile[Req, Resp any](n *LifecycleNode, service string, profile core.Profile, optFns ...func(o *core.ClientOptions)) (*endpoint.Client[Req, Resp], error) {
	return CreateClient[Req, Resp](n, service, core.QoSFromProfile(profile), optFns...)
}

// CreateService builds a remote-call server answering with handler. It is
// not lifecycle gated.
func CreateService[Req, Resp any](n *LifecycleNode, service string, handler func(ctx context.Context, req Req) (Resp, error), qos core.QoS, optFns ...func(o *core.ServiceOptions)) (*endpoint.Service[Req, Resp], error) {
	sts, err := serviceTypeSupportFor[Req, Resp](core.KindService, service)
	if err != nil {
		return nil, err
	}
	opts := core.ServiceOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	h, err := n.services.CreateService(service, sts, qos, endpoint.Handle(sts, handler), opts)
	if err != nil {
		n.entityCreated(core.KindService, service, sts.Name, false, err)
		return nil, err
	}
	n.entityCreated(core.KindService, h.ServiceName(), sts.Name, false, nil)
	return endpoint.NewService[Req, Resp](h), nil
}

// CreateServiceWithProfile is CreateService taking a legacy QoS profile.
func CreateServiceWithProfile[Req, Resp any](n *LifecycleNode, service string, handler func(ctx context.Context, req Req) (Resp, error), profile core.Profile, optFns ...func(o *core.ServiceOptions)) (*endpoint.Service[Req, Resp], error) {
	return CreateService(n, service, handler, core.QoSFromProfile(profile), optFns...)
}

func typeSupportFor[M any](kind core.EntityKind, name string) (*core.TypeSupport, error) {
	ts, err := core.TypeSupportFor[M]()
	if err != nil {
		return nil, core.NewTransportConstructionError(kind, name, core.TypeNameOf[M](), err)
	}
	return ts, nil
}

func serviceTypeSupportFor[Req, Resp any](kind core.EntityKind, name string) (*core.ServiceTypeSupport, error) {
	sts, err := core.ServiceTypeSupportFor[Req, Resp]()
	if err != nil {
		return nil, core.NewTransportConstructionError(kind, name, "", err)
	}
	return sts, nil
}

// entityLogger scopes the node logger to one entity when it supports it.
func (n *LifecycleNode) entityLogger(name string) logging.Logger {
	if nl, ok := n.logger.(*logging.NodeLogger); ok {
		return nl.WithEntity(name)
	}
	return n.logger
}

func (n *LifecycleNode) entityCreated(kind core.EntityKind, name, typeName string, managed bool, err error) {
	logging.EntityCreated(n.logger, string(kind), name, typeName, managed, err)
}
