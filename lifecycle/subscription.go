package lifecycle

import (
	"errors"
	"io"

	"github.com/hupe1980/nodemesh/core"
	"github.com/hupe1980/nodemesh/endpoint"
)

var _ core.ManagedEntity = (*LifecycleSubscription[struct{}])(nil)

// LifecycleSubscription is a Subscription whose callback only runs while
// activated. The transport callback must be wrapped with Gated on the same
// Activation.
type LifecycleSubscription[M any] struct {
	*endpoint.Subscription[M]
	state    *Activation
	attached []io.Closer
}

// NewLifecycleSubscription decorates sub gated by state. Attached endpoints
// (statistics publisher and timer) share the subscription's lifetime and are
// closed with it.
func NewLifecycleSubscription[M any](sub *endpoint.Subscription[M], state *Activation, attached ...io.Closer) *LifecycleSubscription[M] {
	return &LifecycleSubscription[M]{Subscription: sub, state: state, attached: attached}
}

// OnActivate implements core.ManagedEntity.
func (s *LifecycleSubscription[M]) OnActivate() error {
	s.state.Set(true)
	return nil
}

// OnDeactivate implements core.ManagedEntity.
func (s *LifecycleSubscription[M]) OnDeactivate() error {
	s.state.Set(false)
	return nil
}

// IsActivated implements core.ManagedEntity.
func (s *LifecycleSubscription[M]) IsActivated() bool { return s.state.Active() }

// Close closes the subscription and its attached endpoints.
func (s *LifecycleSubscription[M]) Close() error {
	errs := []error{s.Subscription.Close()}
	for _, c := range s.attached {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
