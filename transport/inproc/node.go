package inproc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/internal/util"
	"github.com/hupe1980/nodemesh/logging"
)

// closeable is a transport handle owned by a node.
type closeable interface {
	Close() error
}

// Node is the transport side of one node. It implements every collaborator
// interface a node.LifecycleNode consumes.
type Node struct {
	domain    *Context
	name      string
	namespace string
	fqn       string
	id        string
	logger    logging.Logger

	mu      sync.Mutex
	groups  map[*core.CallbackGroup]*sync.Mutex
	handles map[closeable]struct{}
}

var (
	_ core.NodeBase     = (*Node)(nil)
	_ core.NodeGraph    = (*Node)(nil)
	_ core.NodeTopics   = (*Node)(nil)
	_ core.NodeTimers   = (*Node)(nil)
	_ core.NodeServices = (*Node)(nil)
	_ core.NodeClock    = (*Node)(nil)
)

func (n *Node) Name() string               { return n.name }
func (n *Node) Namespace() string          { return n.namespace }
func (n *Node) FullyQualifiedName() string { return n.fqn }
func (n *Node) InstanceID() string         { return n.id }
func (n *Node) Clock() core.Clock          { return n.domain.clock }

func (n *Node) TopicNamesAndTypes() map[string][]string   { return n.domain.TopicNamesAndTypes() }
func (n *Node) ServiceNamesAndTypes() map[string][]string { return n.domain.ServiceNamesAndTypes() }
func (n *Node) ServiceIsAvailable(service string) bool    { return n.domain.serviceAvailable(service) }

func (n *Node) CountPublishers(topic string) int {
	pubs, _ := n.domain.topicCounts(topic)
	return pubs
}

func (n *Node) CountSubscribers(topic string) int {
	_, subs := n.domain.topicCounts(topic)
	return subs
}

// ResolveTopicName expands a relative or private name against the node.
func (n *Node) ResolveTopicName(name string) (string, error) {
	return util.ExpandTopicName(name, n.name, n.namespace)
}

// Close closes every endpoint the node still owns.
func (n *Node) Close() error {
	n.mu.Lock()
	handles := make([]closeable, 0, len(n.handles))
	for h := range n.handles {
		handles = append(handles, h)
	}
	n.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (n *Node) track(h closeable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handles[h] = struct{}{}
}

func (n *Node) untrack(h closeable) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.handles, h)
}

// groupLock returns the lock serializing callbacks of g. Reentrant and nil
// groups do not serialize.
func (n *Node) groupLock(g *core.CallbackGroup) sync.Locker {
	if g == nil || g.Reentrant {
		return noLock{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	l, ok := n.groups[g]
	if !ok {
		l = &sync.Mutex{}
		n.groups[g] = l
	}
	return l
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// resolve expands name or wraps the failure for kind.
func (n *Node) resolve(kind core.EntityKind, name, typeName string) (string, error) {
	resolved, err := n.ResolveTopicName(name)
	if err != nil {
		return "", core.NewTransportConstructionError(kind, name, typeName, fmt.Errorf("%w: %w", core.ErrInvalidName, err))
	}
	return resolved, nil
}

// checkTypeSupport rejects opaque type supports, which carry a name but no
// codec.
func checkTypeSupport(kind core.EntityKind, name string, ts *core.TypeSupport) error {
	switch {
	case ts == nil:
		return core.NewTransportConstructionError(kind, name, "", fmt.Errorf("%w: no type support", core.ErrUnsupportedType))
	case ts.Name == "" || ts.Marshal == nil || ts.Unmarshal == nil:
		return core.NewTransportConstructionError(kind, name, ts.Name, core.ErrUnsupportedType)
	}
	return nil
}

// guard runs fn, turning a panic into a logged error so the endpoint's
// goroutine keeps serving.
func (n *Node) guard(kind core.EntityKind, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("callback panicked", "node", n.fqn, "kind", string(kind), "name", name, "recover", r)
		}
	}()
	fn()
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseStamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
