package inproc

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/internal/util"
)

// Message metadata keys.
const (
	metaType      = "nodemesh_type"
	metaGID       = "nodemesh_gid"
	metaNode      = "nodemesh_node"
	metaSeq       = "nodemesh_seq"
	metaStamp     = "nodemesh_stamp"
	metaRequestID = "nodemesh_request_id"
	metaReplyTo   = "nodemesh_reply_to"
	metaError     = "nodemesh_error"
)

// CreatePublisher implements core.NodeTopics.
func (n *Node) CreatePublisher(topic string, ts *core.TypeSupport, qos core.QoS, _ core.PublisherOptions) (core.PublisherHandle, error) {
	if err := checkTypeSupport(core.KindPublisher, topic, ts); err != nil {
		return nil, err
	}
	resolved, err := n.resolve(core.KindPublisher, topic, ts.Name)
	if err != nil {
		return nil, err
	}
	if err := n.domain.bindTopic(resolved, ts.Name, true); err != nil {
		return nil, core.NewTransportConstructionError(core.KindPublisher, resolved, ts.Name, err)
	}
	p := &publisher{node: n, topic: resolved, typeName: ts.Name, gid: util.NewID(), qos: qos}
	n.track(p)
	return p, nil
}

type publisher struct {
	node     *Node
	topic    string
	typeName string
	gid      string
	qos      core.QoS
	seq      atomic.Uint64
	closed   atomic.Bool
}

func (p *publisher) TopicName() string      { return p.topic }
func (p *publisher) TypeName() string       { return p.typeName }
func (p *publisher) GID() string            { return p.gid }
func (p *publisher) QoS() core.QoS          { return p.qos }
func (p *publisher) SubscriptionCount() int { return p.node.CountSubscribers(p.topic) }

func (p *publisher) Publish(msg *core.SerializedMessage) error {
	if p.closed.Load() {
		return fmt.Errorf("publish on %s: %w", p.topic, core.ErrClosed)
	}
	if msg.TypeName != "" && msg.TypeName != p.typeName {
		return fmt.Errorf("publish %s on %s: %w", msg.TypeName, p.topic, core.ErrTypeConflict)
	}
	m := message.NewMessage(watermill.NewUUID(), msg.Data)
	m.Metadata.Set(metaType, p.typeName)
	m.Metadata.Set(metaGID, p.gid)
	m.Metadata.Set(metaNode, p.node.fqn)
	m.Metadata.Set(metaSeq, strconv.FormatUint(p.seq.Add(1), 10))
	m.Metadata.Set(metaStamp, stamp(time.Now()))
	if err := p.node.domain.bus.Publish(p.topic, m); err != nil {
		return fmt.Errorf("publish on %s: %w", p.topic, err)
	}
	return nil
}

func (p *publisher) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.node.domain.releaseTopic(p.topic, true)
	p.node.untrack(p)
	return nil
}

// CreateSubscription implements core.NodeTopics. Each subscription consumes
// the bus on its own goroutine.
func (n *Node) CreateSubscription(topic string, ts *core.TypeSupport, qos core.QoS, callback core.SerializedCallback, opts core.SubscriptionOptions) (core.SubscriptionHandle, error) {
	if err := checkTypeSupport(core.KindSubscription, topic, ts); err != nil {
		return nil, err
	}
	resolved, err := n.resolve(core.KindSubscription, topic, ts.Name)
	if err != nil {
		return nil, err
	}
	if err := n.domain.bindTopic(resolved, ts.Name, false); err != nil {
		return nil, core.NewTransportConstructionError(core.KindSubscription, resolved, ts.Name, err)
	}

	ctx, cancel := context.WithCancel(n.domain.ctx)
	messages, err := n.domain.bus.Subscribe(ctx, resolved)
	if err != nil {
		cancel()
		n.domain.releaseTopic(resolved, false)
		return nil, core.NewTransportConstructionError(core.KindSubscription, resolved, ts.Name, err)
	}

	memory := opts.MemoryStrategy
	if memory == nil {
		memory = core.DefaultMemoryStrategy{}
	}
	s := &subscription{node: n, topic: resolved, typeName: ts.Name, qos: qos, cancel: cancel}
	n.track(s)
	go s.consume(messages, callback, memory, n.groupLock(opts.CallbackGroup), opts.IgnoreLocalPublications)
	return s, nil
}

type subscription struct {
	node     *Node
	topic    string
	typeName string
	qos      core.QoS
	cancel   context.CancelFunc
	once     sync.Once
	closed   atomic.Bool
}

func (s *subscription) TopicName() string   { return s.topic }
func (s *subscription) TypeName() string    { return s.typeName }
func (s *subscription) QoS() core.QoS       { return s.qos }
func (s *subscription) PublisherCount() int { return s.node.CountPublishers(s.topic) }

func (s *subscription) consume(messages <-chan *message.Message, callback core.SerializedCallback, memory core.MessageMemoryStrategy, lock sync.Locker, ignoreLocal bool) {
	for m := range messages {
		if s.closed.Load() || (ignoreLocal && m.Metadata.Get(metaNode) == s.node.fqn) {
			m.Ack()
			continue
		}
		buf := memory.Borrow(len(m.Payload))
		copy(buf, m.Payload)
		msg := &core.SerializedMessage{TypeName: m.Metadata.Get(metaType), Data: buf}
		info := messageInfo(m)

		lock.Lock()
		if !s.closed.Load() {
			s.node.guard(core.KindSubscription, s.topic, func() { callback(msg, info) })
		}
		lock.Unlock()

		memory.Return(buf)
		m.Ack()
	}
}

func messageInfo(m *message.Message) core.MessageInfo {
	seq, _ := strconv.ParseUint(m.Metadata.Get(metaSeq), 10, 64)
	return core.MessageInfo{
		PublisherGID:      m.Metadata.Get(metaGID),
		SequenceNumber:    seq,
		SourceTimestamp:   parseStamp(m.Metadata.Get(metaStamp)),
		ReceivedTimestamp: time.Now(),
		FromIntraProcess:  true,
	}
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.node.domain.releaseTopic(s.topic, false)
		s.node.untrack(s)
	})
	return nil
}
