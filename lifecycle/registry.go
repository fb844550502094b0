package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"weak"

	"github.com/google/uuid"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/logging"
)

// Options configures a Registry.
type Options struct {
	// Logger defaults to a NoOpLogger.
	Logger logging.Logger
}

// handle is a non-owning reference to a registered entity. resolve returns
// nil once the owner released the entity.
type handle struct {
	id      string
	resolve func() core.ManagedEntity
}

// Registry tracks the managed entities of one node and toggles them on
// lifecycle transitions.
//
// Concurrency Model:
//   - registration, pruning and target state changes share one mutex
//   - entity toggles run outside that mutex
//   - sweeps are serialized, so the state after concurrent sweeps is the
//     target of the last one
//
// An entity registered while a sweep is in flight is brought to the
// registry's current target state at registration.
type Registry struct {
	sweepMu sync.Mutex

	mu      sync.Mutex
	handles []handle
	active  bool

	logger logging.Logger
}

// NewRegistry creates an empty, inactive registry.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{logger: logging.OrNoOp(opts.Logger)}
}

// Manage records a weak handle to entity. It never fails; registering two
// distinct entities yields two handles. Entity toggles at registration must
// not call back into the registry.
func Manage[T any, PT interface {
	*T
	core.ManagedEntity
}](r *Registry, entity PT) {
	wp := weak.Make((*T)(entity))
	h := handle{
		id: uuid.NewString(),
		resolve: func() core.ManagedEntity {
			p := wp.Value()
			if p == nil {
				return nil
			}
			return PT(p)
		},
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, h)

	var err error
	if r.active && !entity.IsActivated() {
		err = entity.OnActivate()
	} else if !r.active && entity.IsActivated() {
		err = entity.OnDeactivate()
	}
	if err != nil {
		r.logger.Warn("entity did not reach registry state", "handle", h.id, "active", r.active, "error", err.Error())
	}
}

// ActivateAll enables every live entity. Failures do not stop the sweep;
// they are returned joined once every entity was visited.
func (r *Registry) ActivateAll() error {
	return r.sweep(true)
}

// DeactivateAll disables every live entity, with the error semantics of
// ActivateAll.
func (r *Registry) DeactivateAll() error {
	return r.sweep(false)
}

func (r *Registry) sweep(activate bool) error {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	start := time.Now()
	r.mu.Lock()
	r.active = activate
	before := len(r.handles)
	live, entities := r.pruneLocked()
	r.mu.Unlock()

	var errs []error
	for i, e := range entities {
		var err error
		if activate {
			err = e.OnActivate()
		} else {
			err = e.OnDeactivate()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("entity %s: %w", live[i].id, err))
		}
	}

	logging.TransitionSweep(r.logger, targetName(activate), len(entities), before-len(live), len(errs), time.Since(start))
	return errors.Join(errs...)
}

// pruneLocked drops released handles and returns the live handles with a
// strong reference to each entity, index aligned.
func (r *Registry) pruneLocked() ([]handle, []core.ManagedEntity) {
	live := r.handles[:0]
	entities := make([]core.ManagedEntity, 0, len(r.handles))
	for _, h := range r.handles {
		if e := h.resolve(); e != nil {
			live = append(live, h)
			entities = append(entities, e)
		}
	}
	clear(r.handles[len(live):])
	r.handles = live
	return append([]handle(nil), live...), entities
}

// Len returns the number of live entities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, entities := r.pruneLocked()
	return len(entities)
}

// IsActive reports the target state of the last sweep.
func (r *Registry) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func targetName(activate bool) string {
	if activate {
		return "active"
	}
	return "inactive"
}
