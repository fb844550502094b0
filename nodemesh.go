// Package nodemesh provides a high-level façade over the lifecycle node
// runtime: the entity registry, the typed entity factories and the parameter
// layer, wired to the in-process transport. Most applications interact with
// this package by:
//  1. Creating a Mesh via New() (optionally loading a YAML parameter file)
//  2. Creating nodes with Mesh.NewNode and declaring their parameters
//  3. Building publishers, subscriptions, timers and services through the
//     node package factories
//  4. Driving lifecycle transitions with ActivateEntities/DeactivateEntities
//
// Every node created from one Mesh shares the same in-process bus.
package nodemesh

import (
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/logging"
	"github.com/hupe1980/nodemesh/node"
	"github.com/hupe1980/nodemesh/param"
	"github.com/hupe1980/nodemesh/transport/inproc"
)

// Options configures the Mesh instance.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Clock is the node clock shared by every node. Defaults to a ROS time
	// clock following the wall clock.
	Clock core.Clock

	// ParamsFile is a YAML parameter file in the ros__parameters layout.
	// Each node picks its own section plus the "/**" wildcard section.
	ParamsFile string

	// Overrides apply to every node and take precedence over ParamsFile.
	Overrides map[string]param.ParameterValue
}

// NodeOptions configures one node.
type NodeOptions struct {
	// Namespace defaults to "/".
	Namespace string

	// Overrides apply to this node only and take precedence over the
	// mesh-wide overrides.
	Overrides map[string]param.ParameterValue

	// AllowUndeclared lets parameter writes create undeclared parameters.
	AllowUndeclared bool
}

// Mesh owns one in-process communication domain and the nodes created in it.
type Mesh struct {
	opts   Options
	domain *inproc.Context

	mu    sync.Mutex
	nodes []*inproc.Node
}

// New creates a Mesh with a private in-process bus.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	domain := inproc.NewContext(func(o *inproc.Options) {
		o.Logger = opts.Logger
		o.Clock = opts.Clock
	})
	return &Mesh{opts: opts, domain: domain}
}

// NewNode creates a lifecycle node named name. Its parameter overrides are
// the matching sections of the parameter file, then the mesh overrides, then
// the node overrides.
func (m *Mesh) NewNode(name string, optFns ...func(o *NodeOptions)) (*node.LifecycleNode, error) {
	nopts := NodeOptions{Namespace: "/"}
	for _, fn := range optFns {
		fn(&nopts)
	}

	tn, err := m.domain.NewNode(name, func(o *inproc.NodeOptions) { o.Namespace = nopts.Namespace })
	if err != nil {
		return nil, err
	}

	overrides := map[string]param.ParameterValue{}
	if m.opts.ParamsFile != "" {
		fromFile, err := param.LoadOverridesFile(m.opts.ParamsFile, tn.FullyQualifiedName())
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", tn.FullyQualifiedName(), err)
		}
		maps.Copy(overrides, fromFile)
	}
	maps.Copy(overrides, m.opts.Overrides)
	maps.Copy(overrides, nopts.Overrides)

	logger := m.opts.Logger
	store := param.NewStore(func(o *param.StoreOptions) {
		o.Overrides = overrides
		o.AllowUndeclared = nopts.AllowUndeclared
		o.Logger = logger
	})

	n, err := node.New(
		node.WithTransport(tn),
		node.WithParameters(store),
		node.WithLogger(logger),
	)
	if err != nil {
		_ = tn.Close()
		return nil, err
	}

	m.mu.Lock()
	m.nodes = append(m.nodes, tn)
	m.mu.Unlock()
	return n, nil
}

// Topics maps every topic in the mesh to its type.
func (m *Mesh) Topics() map[string][]string { return m.domain.TopicNamesAndTypes() }

// Services maps every service in the mesh to its type.
func (m *Mesh) Services() map[string][]string { return m.domain.ServiceNamesAndTypes() }

// Close releases every node's endpoints and shuts the bus down.
func (m *Mesh) Close() error {
	m.mu.Lock()
	nodes := m.nodes
	m.nodes = nil
	m.mu.Unlock()

	var errs []error
	for _, n := range nodes {
		errs = append(errs, n.Close())
	}
	errs = append(errs, m.domain.Close())
	return errors.Join(errs...)
}
