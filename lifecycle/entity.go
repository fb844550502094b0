package lifecycle

import (
	"sync/atomic"

	"github.com/hupe1980/nodemesh/core"
)

var _ core.ManagedEntity = (*SimpleManagedEntity)(nil)

// SimpleManagedEntity is an embeddable activation flag. Its toggles never
// fail and are idempotent.
type SimpleManagedEntity struct {
	active atomic.Bool
}

// OnActivate implements core.ManagedEntity.
func (e *SimpleManagedEntity) OnActivate() error {
	e.active.Store(true)
	return nil
}

// OnDeactivate implements core.ManagedEntity.
func (e *SimpleManagedEntity) OnDeactivate() error {
	e.active.Store(false)
	return nil
}

// IsActivated implements core.ManagedEntity.
func (e *SimpleManagedEntity) IsActivated() bool { return e.active.Load() }

// Activation is an activation flag shared between a decorator and the
// transport callback it gates. Callbacks capture the Activation rather than
// the decorator, so the decorator stays collectable.
type Activation struct {
	active atomic.Bool
}

// NewActivation returns an inactive flag.
func NewActivation() *Activation { return &Activation{} }

// Set stores the state.
func (a *Activation) Set(active bool) { a.active.Store(active) }

// Active reports the state.
func (a *Activation) Active() bool { return a.active.Load() }

// Gated wraps cb so that messages arriving while a is inactive are dropped.
func Gated(a *Activation, cb core.SerializedCallback) core.SerializedCallback {
	return func(msg *core.SerializedMessage, info core.MessageInfo) {
		if !a.Active() {
			return
		}
		cb(msg, info)
	}
}
