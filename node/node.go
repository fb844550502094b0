package node

import (
	"fmt"

	"github.com/hupe1980/nodemesh/clock"
	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/lifecycle"
	"github.com/hupe1980/nodemesh/logging"
	"github.com/hupe1980/nodemesh/param"
)

// Parameters is the dynamically typed parameter store a node delegates to.
// *param.Store implements it.
type Parameters interface {
	Declare(name string, defaultValue param.ParameterValue, d param.Descriptor, ignoreOverride bool) (param.ParameterValue, error)
	DeclareType(name string, t param.Type, d param.Descriptor, ignoreOverride bool) (param.ParameterValue, error)
	Undeclare(name string) error
	Has(name string) bool
	Get(name string) (param.Parameter, bool)
	GetByPrefix(prefix string) (map[string]param.Parameter, bool)
	Set(params ...param.Parameter) error
	Describe(name string) (param.Descriptor, error)
	List(prefixes []string, depth int) param.ListResult
}

var _ Parameters = (*param.Store)(nil)

// Transport bundles every collaborator a node consumes from its transport.
type Transport interface {
	core.NodeBase
	core.NodeGraph
	core.NodeTopics
	core.NodeTimers
	core.NodeServices
	core.NodeClock
}

// Options configures a LifecycleNode.
type Options struct {
	Base     core.NodeBase
	Graph    core.NodeGraph
	Topics   core.NodeTopics
	Timers   core.NodeTimers
	Services core.NodeServices
	Clock    core.NodeClock

	// SteadyClock drives wall timers. Defaults to clock.NewSteady().
	SteadyClock core.Clock

	// Parameters defaults to an empty param.Store.
	Parameters Parameters

	// Types resolves runtime type names for the generic factories.
	// Defaults to core.DefaultTypeRegistry.
	Types *core.TypeRegistry

	// Registry defaults to a new, inactive lifecycle.Registry.
	Registry *lifecycle.Registry

	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// WithTransport sets every transport collaborator from t.
func WithTransport(t Transport) func(o *Options) {
	return func(o *Options) {
		o.Base, o.Graph, o.Topics, o.Timers, o.Services, o.Clock = t, t, t, t, t, t
	}
}

// WithParameters sets the parameter store.
func WithParameters(p Parameters) func(o *Options) {
	return func(o *Options) { o.Parameters = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithRegistry sets the lifecycle registry.
func WithRegistry(r *lifecycle.Registry) func(o *Options) {
	return func(o *Options) { o.Registry = r }
}

// WithTypes sets the type registry used by the generic factories.
func WithTypes(r *core.TypeRegistry) func(o *Options) {
	return func(o *Options) { o.Types = r }
}

// LifecycleNode is the node context shared by every factory and parameter
// call. It outlives the entities it creates and holds no strong reference to
// them.
type LifecycleNode struct {
	base     core.NodeBase
	graph    core.NodeGraph
	topics   core.NodeTopics
	timers   core.NodeTimers
	services core.NodeServices
	clock    core.NodeClock
	steady   core.Clock
	params   Parameters
	types    *core.TypeRegistry
	registry *lifecycle.Registry
	logger   logging.Logger
}

// New creates a node. Every transport collaborator is required.
func New(optFns ...func(o *Options)) (*LifecycleNode, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	switch {
	case opts.Base == nil:
		return nil, fmt.Errorf("%w: node base is required", core.ErrInvalidArgument)
	case opts.Graph == nil, opts.Topics == nil, opts.Timers == nil, opts.Services == nil, opts.Clock == nil:
		return nil, fmt.Errorf("%w: node %s is missing a transport collaborator", core.ErrInvalidArgument, opts.Base.FullyQualifiedName())
	}

	logger := logging.OrNoOp(opts.Logger)
	if nl, ok := logger.(*logging.NodeLogger); ok {
		logger = nl.WithNode(opts.Base.FullyQualifiedName())
	}
	if opts.SteadyClock == nil {
		opts.SteadyClock = clock.NewSteady()
	}
	if opts.Parameters == nil {
		opts.Parameters = param.NewStore(func(o *param.StoreOptions) { o.Logger = logger })
	}
	if opts.Types == nil {
		opts.Types = core.DefaultTypeRegistry
	}
	if opts.Registry == nil {
		opts.Registry = lifecycle.NewRegistry(func(o *lifecycle.Options) { o.Logger = logger })
	}

	return &LifecycleNode{
		base:     opts.Base,
		graph:    opts.Graph,
		topics:   opts.Topics,
		timers:   opts.Timers,
		services: opts.Services,
		clock:    opts.Clock,
		steady:   opts.SteadyClock,
		params:   opts.Parameters,
		types:    opts.Types,
		registry: opts.Registry,
		logger:   logger,
	}, nil
}

func (n *LifecycleNode) Name() string               { return n.base.Name() }
func (n *LifecycleNode) Namespace() string          { return n.base.Namespace() }
func (n *LifecycleNode) FullyQualifiedName() string { return n.base.FullyQualifiedName() }

func (n *LifecycleNode) Base() core.NodeBase           { return n.base }
func (n *LifecycleNode) Graph() core.NodeGraph         { return n.graph }
func (n *LifecycleNode) Topics() core.NodeTopics       { return n.topics }
func (n *LifecycleNode) Timers() core.NodeTimers       { return n.timers }
func (n *LifecycleNode) Services() core.NodeServices   { return n.services }
func (n *LifecycleNode) Parameters() Parameters        { return n.params }
func (n *LifecycleNode) Registry() *lifecycle.Registry { return n.registry }
func (n *LifecycleNode) Logger() logging.Logger        { return n.logger }

// Clock returns the node clock.
func (n *LifecycleNode) Clock() core.Clock { return n.clock.Clock() }

// ActivateEntities enables every lifecycle gated entity of the node. It is
// called by the transition dispatcher on entering the active state.
func (n *LifecycleNode) ActivateEntities() error {
	return n.registry.ActivateAll()
}

// DeactivateEntities disables every lifecycle gated entity of the node.
func (n *LifecycleNode) DeactivateEntities() error {
	return n.registry.DeactivateAll()
}
