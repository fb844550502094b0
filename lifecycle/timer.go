package lifecycle

import (
	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/endpoint"
)

var _ core.ManagedEntity = (*LifecycleWallTimer)(nil)

// LifecycleWallTimer is a wall timer that runs only while activated: it is
// canceled on deactivation and reset on activation. The timer callback must
// be gated on the same Activation.
type LifecycleWallTimer struct {
	*endpoint.Timer
	state *Activation
}

// NewLifecycleWallTimer decorates timer. The timer should be created
// canceled.
func NewLifecycleWallTimer(timer *endpoint.Timer, state *Activation) *LifecycleWallTimer {
	return &LifecycleWallTimer{Timer: timer, state: state}
}

// OnActivate resets the timer.
func (t *LifecycleWallTimer) OnActivate() error {
	t.state.Set(true)
	t.Timer.Reset()
	return nil
}

// OnDeactivate cancels the timer.
func (t *LifecycleWallTimer) OnDeactivate() error {
	t.state.Set(false)
	t.Timer.Cancel()
	return nil
}

// IsActivated implements core.ManagedEntity.
func (t *LifecycleWallTimer) IsActivated() bool { return t.state.Active() }

// Gate wraps a timer callback so it only runs while state is active.
func Gate(state *Activation, callback func()) func() {
	return func() {
		if state.Active() {
			callback()
		}
	}
}
