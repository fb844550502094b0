package inproc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/internal/util"
)

// ErrServiceUnavailable is returned by Call when no server is bound to the
// service.
var ErrServiceUnavailable = errors.New("service unavailable")

// RemoteError carries a failure reported by the server handling a call.
type RemoteError struct {
	Service string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("service %s: %s", e.Service, e.Message)
}

func requestTopic(service string) string { return "rq" + service + "Request" }

func replyTopic(service, clientID string) string {
	return "rr" + service + "Reply/" + clientID
}

func checkServiceTypeSupport(kind core.EntityKind, name string, sts *core.ServiceTypeSupport) error {
	if sts == nil || sts.Name == "" {
		return core.NewTransportConstructionError(kind, name, "", fmt.Errorf("%w: no service type support", core.ErrUnsupportedType))
	}
	if err := checkTypeSupport(kind, name, sts.Request); err != nil {
		return err
	}
	return checkTypeSupport(kind, name, sts.Response)
}

// CreateService implements core.NodeServices. Requests are handled one at a
// time on the service's goroutine.
func (n *Node) CreateService(service string, sts *core.ServiceTypeSupport, _ core.QoS, handler core.ServiceHandler, opts core.ServiceOptions) (core.ServiceHandle, error) {
	if err := checkServiceTypeSupport(core.KindService, service, sts); err != nil {
		return nil, err
	}
	resolved, err := n.resolve(core.KindService, service, sts.Name)
	if err != nil {
		return nil, err
	}
	if err := n.domain.bindService(resolved, sts.Name, true); err != nil {
		return nil, core.NewTransportConstructionError(core.KindService, resolved, sts.Name, err)
	}

	ctx, cancel := context.WithCancel(n.domain.ctx)
	requests, err := n.domain.bus.Subscribe(ctx, requestTopic(resolved))
	if err != nil {
		cancel()
		n.domain.releaseService(resolved, true)
		return nil, core.NewTransportConstructionError(core.KindService, resolved, sts.Name, err)
	}
	s := &server{node: n, service: resolved, typeName: sts.Name, cancel: cancel}
	n.track(s)
	go s.serve(ctx, requests, handler, n.groupLock(opts.CallbackGroup))
	return s, nil
}

type server struct {
	node     *Node
	service  string
	typeName string
	cancel   context.CancelFunc
	once     sync.Once
}

func (s *server) ServiceName() string { return s.service }

func (s *server) serve(ctx context.Context, requests <-chan *message.Message, handler core.ServiceHandler, lock sync.Locker) {
	for m := range requests {
		req := &core.SerializedMessage{TypeName: s.typeName, Data: m.Payload}
		var (
			resp *core.SerializedMessage
			err  error
		)
		lock.Lock()
		s.node.guard(core.KindService, s.service, func() { resp, err = handler(ctx, req) })
		lock.Unlock()
		if resp == nil && err == nil {
			err = errors.New("handler returned no response")
		}

		var reply *message.Message
		if err != nil {
			reply = message.NewMessage(watermill.NewUUID(), nil)
			reply.Metadata.Set(metaError, err.Error())
		} else {
			reply = message.NewMessage(watermill.NewUUID(), resp.Data)
		}
		reply.Metadata.Set(metaRequestID, m.Metadata.Get(metaRequestID))
		if perr := s.node.domain.bus.Publish(m.Metadata.Get(metaReplyTo), reply); perr != nil {
			s.node.logger.Warn("failed to send service reply", "service", s.service, "error", perr.Error())
		}
		m.Ack()
	}
}

func (s *server) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.node.domain.releaseService(s.service, true)
		s.node.untrack(s)
	})
	return nil
}

// CreateClient implements core.NodeServices.
func (n *Node) CreateClient(service string, sts *core.ServiceTypeSupport, _ core.QoS, _ core.ClientOptions) (core.ClientHandle, error) {
	if err := checkServiceTypeSupport(core.KindClient, service, sts); err != nil {
		return nil, err
	}
	resolved, err := n.resolve(core.KindClient, service, sts.Name)
	if err != nil {
		return nil, err
	}
	if err := n.domain.bindService(resolved, sts.Name, false); err != nil {
		return nil, core.NewTransportConstructionError(core.KindClient, resolved, sts.Name, err)
	}

	id := util.NewID()
	ctx, cancel := context.WithCancel(n.domain.ctx)
	replies, err := n.domain.bus.Subscribe(ctx, replyTopic(resolved, id))
	if err != nil {
		cancel()
		n.domain.releaseService(resolved, false)
		return nil, core.NewTransportConstructionError(core.KindClient, resolved, sts.Name, err)
	}
	c := &client{
		node:     n,
		service:  resolved,
		typeName: sts.Response.Name,
		replyTo:  replyTopic(resolved, id),
		cancel:   cancel,
		pending:  make(map[string]chan reply),
	}
	n.track(c)
	go c.receive(replies)
	return c, nil
}

type reply struct {
	msg *core.SerializedMessage
	err error
}

type client struct {
	node     *Node
	service  string
	typeName string
	replyTo  string
	cancel   context.CancelFunc
	once     sync.Once

	mu      sync.Mutex
	pending map[string]chan reply
}

func (c *client) ServiceName() string  { return c.service }
func (c *client) ServiceIsReady() bool { return c.node.domain.serviceAvailable(c.service) }

func (c *client) receive(replies <-chan *message.Message) {
	for m := range replies {
		id := m.Metadata.Get(metaRequestID)
		c.mu.Lock()
		ch, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()
		if ok {
			r := reply{msg: &core.SerializedMessage{TypeName: c.typeName, Data: m.Payload}}
			if e := m.Metadata.Get(metaError); e != "" {
				r = reply{err: &RemoteError{Service: c.service, Message: e}}
			}
			ch <- r
		}
		m.Ack()
	}
}

// Call sends request and waits for the matching reply or ctx.
func (c *client) Call(ctx context.Context, request *core.SerializedMessage) (*core.SerializedMessage, error) {
	if !c.ServiceIsReady() {
		return nil, fmt.Errorf("call %s: %w", c.service, ErrServiceUnavailable)
	}
	id := watermill.NewUUID()
	ch := make(chan reply, 1)
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("call %s: %w", c.service, core.ErrClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	m := message.NewMessage(watermill.NewUUID(), request.Data)
	m.Metadata.Set(metaRequestID, id)
	m.Metadata.Set(metaReplyTo, c.replyTo)
	if err := c.node.domain.bus.Publish(requestTopic(c.service), m); err != nil {
		c.forget(id)
		return nil, fmt.Errorf("call %s: %w", c.service, err)
	}

	select {
	case r := <-ch:
		return r.msg, r.err
	case <-ctx.Done():
		c.forget(id)
		return nil, fmt.Errorf("call %s: %w", c.service, ctx.Err())
	}
}

func (c *client) forget(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *client) Close() error {
	c.once.Do(func() {
		c.cancel()
		c.mu.Lock()
		for _, ch := range c.pending {
			ch <- reply{err: fmt.Errorf("call %s: %w", c.service, core.ErrClosed)}
		}
		c.pending = nil
		c.mu.Unlock()
		c.node.domain.releaseService(c.service, false)
		c.node.untrack(c)
	})
	return nil
}
