package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/nodemesh/clock"
	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/internal/util"
)

var (
	_ core.NodeBase     = (*FakeTransport)(nil)
	_ core.NodeGraph    = (*FakeTransport)(nil)
	_ core.NodeTopics   = (*FakeTransport)(nil)
	_ core.NodeTimers   = (*FakeTransport)(nil)
	_ core.NodeServices = (*FakeTransport)(nil)
	_ core.NodeClock    = (*FakeTransport)(nil)
)

// FakeTransport implements every node collaborator in memory. Publishing
// delivers synchronously to the subscriptions of the same topic.
// Example:
//
//	ft := NewFakeTransport("talker").FailOn(core.KindPublisher, core.ErrTypeConflict)
type FakeTransport struct {
	name      string
	namespace string
	clock     *clock.Manual

	mu       sync.Mutex
	failures map[core.EntityKind]error
	pubs     map[string][]*FakePublisher
	subs     map[string][]*FakeSubscription
	services map[string]*FakeService
	timers   []*FakeTimer
	created  map[core.EntityKind]int
	closed   atomic.Int64
}

// NewFakeTransport creates a transport for a node named name in "/".
func NewFakeTransport(name string) *FakeTransport {
	return &FakeTransport{
		name:      name,
		namespace: "/",
		clock:     clock.NewManual(time.Unix(0, 0)),
		failures:  make(map[core.EntityKind]error),
		pubs:      make(map[string][]*FakePublisher),
		subs:      make(map[string][]*FakeSubscription),
		services:  make(map[string]*FakeService),
		created:   make(map[core.EntityKind]int),
	}
}

// FailOn makes every construction of kind fail with a
// *core.TransportConstructionError wrapping err (chainable). A nil err
// clears the failure.
func (f *FakeTransport) FailOn(kind core.EntityKind, err error) *FakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, kind)
	} else {
		f.failures[kind] = err
	}
	return f
}

// Created returns how many entities of kind were built successfully.
func (f *FakeTransport) Created(kind core.EntityKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[kind]
}

// ClosedHandles returns how many handles have been closed.
func (f *FakeTransport) ClosedHandles() int { return int(f.closed.Load()) }

// ManualClock returns the clock reported by Clock.
func (f *FakeTransport) ManualClock() *clock.Manual { return f.clock }

// Timers returns every timer created so far.
func (f *FakeTransport) Timers() []*FakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakeTimer(nil), f.timers...)
}

// Publishers returns the open publishers on topic.
func (f *FakeTransport) Publishers(topic string) []*FakePublisher {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakePublisher(nil), f.pubs[topic]...)
}

func (f *FakeTransport) Name() string               { return f.name }
func (f *FakeTransport) Namespace() string          { return f.namespace }
func (f *FakeTransport) FullyQualifiedName() string { return util.FullyQualifiedName(f.namespace, f.name) }
func (f *FakeTransport) InstanceID() string         { return "fake-" + f.name }
func (f *FakeTransport) Clock() core.Clock          { return f.clock }

func (f *FakeTransport) TopicNamesAndTypes() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string)
	for topic, ps := range f.pubs {
		for _, p := range ps {
			out[topic] = appendUnique(out[topic], p.typeName)
		}
	}
	for topic, ss := range f.subs {
		for _, s := range ss {
			out[topic] = appendUnique(out[topic], s.typeName)
		}
	}
	return out
}

func (f *FakeTransport) ServiceNamesAndTypes() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string)
	for name, s := range f.services {
		out[name] = []string{s.typeName}
	}
	return out
}

func (f *FakeTransport) CountPublishers(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pubs[topic])
}

func (f *FakeTransport) CountSubscribers(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[topic])
}

func (f *FakeTransport) ServiceIsAvailable(service string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.services[service]
	return ok
}

func (f *FakeTransport) ResolveTopicName(name string) (string, error) {
	return util.ExpandTopicName(name, f.name, f.namespace)
}

// failLocked returns the injected failure for kind, if any, and otherwise counts
// a successful construction. Caller holds f.mu.
func (f *FakeTransport) failLocked(kind core.EntityKind, name, typeName string) error {
	if err, ok := f.failures[kind]; ok {
		return core.NewTransportConstructionError(kind, name, typeName, err)
	}
	f.created[kind]++
	return nil
}

func (f *FakeTransport) CreatePublisher(topic string, ts *core.TypeSupport, qos core.QoS, _ core.PublisherOptions) (core.PublisherHandle, error) {
	resolved, err := f.ResolveTopicName(topic)
	if err != nil {
		return nil, core.NewTransportConstructionError(core.KindPublisher, topic, ts.Name, fmt.Errorf("%w: %w", core.ErrInvalidName, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLocked(core.KindPublisher, resolved, ts.Name); err != nil {
		return nil, err
	}
	p := &FakePublisher{t: f, topic: resolved, typeName: ts.Name, gid: util.NewID(), qos: qos}
	f.pubs[resolved] = append(f.pubs[resolved], p)
	return p, nil
}

func (f *FakeTransport) CreateSubscription(topic string, ts *core.TypeSupport, qos core.QoS, callback core.SerializedCallback, _ core.SubscriptionOptions) (core.SubscriptionHandle, error) {
	resolved, err := f.ResolveTopicName(topic)
	if err != nil {
		return nil, core.NewTransportConstructionError(core.KindSubscription, topic, ts.Name, fmt.Errorf("%w: %w", core.ErrInvalidName, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLocked(core.KindSubscription, resolved, ts.Name); err != nil {
		return nil, err
	}
	s := &FakeSubscription{t: f, topic: resolved, typeName: ts.Name, qos: qos, callback: callback}
	f.subs[resolved] = append(f.subs[resolved], s)
	return s, nil
}

func (f *FakeTransport) CreateTimer(c core.Clock, period time.Duration, callback func(), opts core.TimerOptions) (core.TimerHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kind := core.KindTimer
	if c.Type() == core.ClockSteadyTime {
		kind = core.KindWallTimer
	}
	if err := f.failLocked(kind, period.String(), ""); err != nil {
		return nil, err
	}
	t := &FakeTimer{t: f, clock: c, period: period, callback: callback}
	t.canceled.Store(!opts.Autostart)
	f.timers = append(f.timers, t)
	return t, nil
}

func (f *FakeTransport) CreateClient(service string, ts *core.ServiceTypeSupport, _ core.QoS, _ core.ClientOptions) (core.ClientHandle, error) {
	resolved, err := f.ResolveTopicName(service)
	if err != nil {
		return nil, core.NewTransportConstructionError(core.KindClient, service, ts.Name, fmt.Errorf("%w: %w", core.ErrInvalidName, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLocked(core.KindClient, resolved, ts.Name); err != nil {
		return nil, err
	}
	return &FakeClient{t: f, service: resolved}, nil
}

func (f *FakeTransport) CreateService(service string, ts *core.ServiceTypeSupport, _ core.QoS, handler core.ServiceHandler, _ core.ServiceOptions) (core.ServiceHandle, error) {
	resolved, err := f.ResolveTopicName(service)
	if err != nil {
		return nil, core.NewTransportConstructionError(core.KindService, service, ts.Name, fmt.Errorf("%w: %w", core.ErrInvalidName, err))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLocked(core.KindService, resolved, ts.Name); err != nil {
		return nil, err
	}
	if _, exists := f.services[resolved]; exists {
		return nil, core.NewTransportConstructionError(core.KindService, resolved, ts.Name, core.ErrNameConflict)
	}
	s := &FakeService{t: f, service: resolved, typeName: ts.Name, handler: handler}
	f.services[resolved] = s
	return s, nil
}

func (f *FakeTransport) deliver(topic string, msg *core.SerializedMessage, info core.MessageInfo) {
	f.mu.Lock()
	subs := append([]*FakeSubscription(nil), f.subs[topic]...)
	f.mu.Unlock()
	for _, s := range subs {
		s.Deliver(msg, info)
	}
}

// FakePublisher records everything published through it.
type FakePublisher struct {
	t        *FakeTransport
	topic    string
	typeName string
	gid      string
	qos      core.QoS
	seq      atomic.Uint64
	closed   atomic.Bool

	mu        sync.Mutex
	published []*core.SerializedMessage
}

func (p *FakePublisher) TopicName() string { return p.topic }
func (p *FakePublisher) TypeName() string  { return p.typeName }
func (p *FakePublisher) GID() string       { return p.gid }
func (p *FakePublisher) QoS() core.QoS     { return p.qos }

func (p *FakePublisher) Publish(msg *core.SerializedMessage) error {
	if p.closed.Load() {
		return core.ErrClosed
	}
	p.mu.Lock()
	p.published = append(p.published, msg)
	p.mu.Unlock()
	p.t.deliver(p.topic, msg, core.MessageInfo{
		PublisherGID:      p.gid,
		SequenceNumber:    p.seq.Add(1),
		SourceTimestamp:   p.t.clock.Now(),
		ReceivedTimestamp: p.t.clock.Now(),
		FromIntraProcess:  true,
	})
	return nil
}

// Published returns a copy of the messages published so far.
func (p *FakePublisher) Published() []*core.SerializedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*core.SerializedMessage(nil), p.published...)
}

func (p *FakePublisher) SubscriptionCount() int { return p.t.CountSubscribers(p.topic) }

func (p *FakePublisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.t.closed.Add(1)
	p.t.mu.Lock()
	defer p.t.mu.Unlock()
	p.t.pubs[p.topic] = remove(p.t.pubs[p.topic], p)
	return nil
}

// FakeSubscription invokes its callback for every delivered message.
type FakeSubscription struct {
	t        *FakeTransport
	topic    string
	typeName string
	qos      core.QoS
	callback core.SerializedCallback
	closed   atomic.Bool
}

func (s *FakeSubscription) TopicName() string   { return s.topic }
func (s *FakeSubscription) TypeName() string    { return s.typeName }
func (s *FakeSubscription) QoS() core.QoS       { return s.qos }
func (s *FakeSubscription) PublisherCount() int { return s.t.CountPublishers(s.topic) }

// Deliver hands msg to the subscription callback unless it is closed.
func (s *FakeSubscription) Deliver(msg *core.SerializedMessage, info core.MessageInfo) {
	if s.closed.Load() {
		return
	}
	s.callback(msg, info)
}

func (s *FakeSubscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.t.closed.Add(1)
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	s.t.subs[s.topic] = remove(s.t.subs[s.topic], s)
	return nil
}

// FakeTimer only fires when Fire is called.
type FakeTimer struct {
	t        *FakeTransport
	clock    core.Clock
	period   time.Duration
	callback func()
	canceled atomic.Bool
	closed   atomic.Bool
	fired    atomic.Int64
}

// Fire runs the callback once unless the timer is canceled or closed. It
// reports whether the callback ran.
func (t *FakeTimer) Fire() bool {
	if t.canceled.Load() || t.closed.Load() {
		return false
	}
	t.fired.Add(1)
	t.callback()
	return true
}

// Fired returns how often the callback ran.
func (t *FakeTimer) Fired() int { return int(t.fired.Load()) }

// ClockType returns the type of the clock the timer was created with.
func (t *FakeTimer) ClockType() core.ClockType { return t.clock.Type() }

func (t *FakeTimer) Period() time.Duration { return t.period }
func (t *FakeTimer) Cancel()               { t.canceled.Store(true) }
func (t *FakeTimer) Reset()                { t.canceled.Store(false) }
func (t *FakeTimer) IsCanceled() bool      { return t.canceled.Load() }

func (t *FakeTimer) TimeUntilTrigger() time.Duration {
	if t.canceled.Load() {
		return -1
	}
	return t.period
}

func (t *FakeTimer) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.t.closed.Add(1)
	}
	return nil
}

// FakeClient calls the fake service of the same name synchronously.
type FakeClient struct {
	t       *FakeTransport
	service string
}

func (c *FakeClient) ServiceName() string  { return c.service }
func (c *FakeClient) ServiceIsReady() bool { return c.t.ServiceIsAvailable(c.service) }

func (c *FakeClient) Call(ctx context.Context, req *core.SerializedMessage) (*core.SerializedMessage, error) {
	c.t.mu.Lock()
	s, ok := c.t.services[c.service]
	c.t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("service %q not available", c.service)
	}
	return s.handler(ctx, req)
}

func (c *FakeClient) Close() error {
	c.t.closed.Add(1)
	return nil
}

// FakeService holds a registered handler.
type FakeService struct {
	t        *FakeTransport
	service  string
	typeName string
	handler  core.ServiceHandler
}

func (s *FakeService) ServiceName() string { return s.service }

func (s *FakeService) Close() error {
	s.t.closed.Add(1)
	s.t.mu.Lock()
	defer s.t.mu.Unlock()
	delete(s.t.services, s.service)
	return nil
}

func appendUnique(list []string, s string) []string {
	for _, e := range list {
		if e == s {
			return list
		}
	}
	return append(list, s)
}

func remove[T comparable](list []T, v T) []T {
	for i, e := range list {
		if e == v {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
