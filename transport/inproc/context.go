package inproc

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/hupe1980/nodemesh/clock"
	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/internal/util"
	"github.com/hupe1980/nodemesh/logging"
)

// Options configures a Context.
type Options struct {
	// Logger receives transport and bus diagnostics. Defaults to a NoOpLogger.
	Logger logging.Logger
	// Clock is the node clock handed to every node. Defaults to clock.NewROS().
	Clock core.Clock
	// OutputChannelBuffer is the per-subscriber buffer of the bus.
	OutputChannelBuffer int64
}

type topicEntry struct {
	typeName    string
	publishers  int
	subscribers int
}

type serviceEntry struct {
	typeName string
	servers  int
	clients  int
}

// Context is one in-process communication domain. Nodes created from the
// same Context see each other's topics and services.
type Context struct {
	bus    *gochannel.GoChannel
	logger logging.Logger
	clock  core.Clock
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	topics   map[string]*topicEntry
	services map[string]*serviceEntry
}

// NewContext creates a Context with its own bus.
func NewContext(optFns ...func(o *Options)) *Context {
	opts := Options{OutputChannelBuffer: 64}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.OrNoOp(opts.Logger)
	if opts.Clock == nil {
		opts.Clock = clock.NewROS()
	}

	bus := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            opts.OutputChannelBuffer,
		BlockPublishUntilSubscriberAck: false,
	}, newWatermillLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	return &Context{
		bus:      bus,
		logger:   logger,
		clock:    opts.Clock,
		ctx:      ctx,
		cancel:   cancel,
		topics:   make(map[string]*topicEntry),
		services: make(map[string]*serviceEntry),
	}
}

// NodeOptions configures a node created by Context.NewNode.
type NodeOptions struct {
	// Namespace defaults to "/".
	Namespace string
}

// NewNode creates the transport side of a node.
func (c *Context) NewNode(name string, optFns ...func(o *NodeOptions)) (*Node, error) {
	opts := NodeOptions{Namespace: "/"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := util.ValidateNodeName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidName, err)
	}
	if err := util.ValidateNamespace(opts.Namespace); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidName, err)
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("node %s: %w", name, core.ErrClosed)
	}

	fqn := util.FullyQualifiedName(opts.Namespace, name)
	return &Node{
		domain:    c,
		name:      name,
		namespace: opts.Namespace,
		fqn:       fqn,
		id:        util.NewID(),
		logger:    c.logger,
		groups:    make(map[*core.CallbackGroup]*sync.Mutex),
		handles:   make(map[closeable]struct{}),
	}, nil
}

// Close stops every endpoint of every node and shuts the bus down.
func (c *Context) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	return c.bus.Close()
}

// bindTopic records an endpoint of typeName on topic. A topic keeps the type
// of its first endpoint until the last one is released.
func (c *Context) bindTopic(topic, typeName string, publisher bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	e, ok := c.topics[topic]
	if !ok {
		e = &topicEntry{typeName: typeName}
		c.topics[topic] = e
	} else if e.typeName != typeName {
		return fmt.Errorf("%w: topic %s carries %s", core.ErrTypeConflict, topic, e.typeName)
	}
	if publisher {
		e.publishers++
	} else {
		e.subscribers++
	}
	return nil
}

func (c *Context) releaseTopic(topic string, publisher bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.topics[topic]
	if !ok {
		return
	}
	if publisher {
		e.publishers--
	} else {
		e.subscribers--
	}
	if e.publishers <= 0 && e.subscribers <= 0 {
		delete(c.topics, topic)
	}
}

// bindService records a client or server of typeName. A service has at most
// one server.
func (c *Context) bindService(service, typeName string, server bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrClosed
	}
	e, ok := c.services[service]
	if !ok {
		e = &serviceEntry{typeName: typeName}
		c.services[service] = e
	} else if e.typeName != typeName {
		return fmt.Errorf("%w: service %s carries %s", core.ErrTypeConflict, service, e.typeName)
	}
	if server {
		if e.servers > 0 {
			return fmt.Errorf("%w: service %s already has a server", core.ErrNameConflict, service)
		}
		e.servers++
	} else {
		e.clients++
	}
	return nil
}

func (c *Context) releaseService(service string, server bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.services[service]
	if !ok {
		return
	}
	if server {
		e.servers--
	} else {
		e.clients--
	}
	if e.servers <= 0 && e.clients <= 0 {
		delete(c.services, service)
	}
}

// TopicNamesAndTypes maps every topic with at least one endpoint to its type.
func (c *Context) TopicNamesAndTypes() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.topics))
	for name, e := range c.topics {
		out[name] = []string{e.typeName}
	}
	return out
}

// ServiceNamesAndTypes maps every bound service to its type.
func (c *Context) ServiceNamesAndTypes() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.services))
	for name, e := range c.services {
		out[name] = []string{e.typeName}
	}
	return out
}

func (c *Context) topicCounts(topic string) (publishers, subscribers int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.topics[topic]; ok {
		return e.publishers, e.subscribers
	}
	return 0, 0
}

func (c *Context) serviceAvailable(service string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.services[service]
	return ok && e.servers > 0
}

// TopicNames returns the topics with at least one endpoint, sorted.
func (c *Context) TopicNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.topics))
}
