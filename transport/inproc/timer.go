package inproc

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/nodemesh/core"
)

// CreateTimer implements core.NodeTimers. The timer ticks on a ticker of
// clock and runs callback on its own goroutine.
func (n *Node) CreateTimer(clock core.Clock, period time.Duration, callback func(), opts core.TimerOptions) (core.TimerHandle, error) {
	kind := core.KindTimer
	if clock != nil && clock.Type() == core.ClockSteadyTime {
		kind = core.KindWallTimer
	}
	switch {
	case clock == nil:
		return nil, core.NewTransportConstructionError(kind, period.String(), "", core.ErrInvalidArgument)
	case period <= 0:
		return nil, core.NewTransportConstructionError(kind, period.String(), "", core.ErrInvalidArgument)
	}

	ctx, cancel := context.WithCancel(n.domain.ctx)
	t := &timer{
		node:     n,
		kind:     kind,
		clock:    clock,
		period:   period,
		ticker:   clock.NewTicker(period),
		next:     clock.Now().Add(period),
		canceled: !opts.Autostart,
		cancel:   cancel,
	}
	if t.canceled {
		t.ticker.Stop()
	}
	n.track(t)
	go t.run(ctx, callback, n.groupLock(opts.CallbackGroup))
	return t, nil
}

type timer struct {
	node   *Node
	kind   core.EntityKind
	clock  core.Clock
	period time.Duration
	ticker core.Ticker
	cancel context.CancelFunc
	once   sync.Once

	mu       sync.Mutex
	canceled bool
	next     time.Time
}

func (t *timer) run(ctx context.Context, callback func(), lock sync.Locker) {
	defer t.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.ticker.C():
			t.mu.Lock()
			canceled := t.canceled
			if !canceled {
				t.next = now.Add(t.period)
			}
			t.mu.Unlock()
			if canceled {
				continue
			}
			lock.Lock()
			t.node.guard(t.kind, t.period.String(), callback)
			lock.Unlock()
		}
	}
}

func (t *timer) Period() time.Duration { return t.period }

func (t *timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.canceled = true
	t.ticker.Stop()
}

// Reset restarts the period from now, resuming a canceled timer.
func (t *timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.canceled = false
	t.ticker.Reset(t.period)
	t.next = t.clock.Now().Add(t.period)
}

func (t *timer) IsCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// TimeUntilTrigger returns -1 for a canceled timer.
func (t *timer) TimeUntilTrigger() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return -1
	}
	return max(t.next.Sub(t.clock.Now()), 0)
}

func (t *timer) Close() error {
	t.once.Do(func() {
		t.Cancel()
		t.cancel()
		t.node.untrack(t)
	})
	return nil
}
