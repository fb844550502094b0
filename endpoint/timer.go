package endpoint

import (
	"time"

	"github.com/hupe1980/nodemesh/core"
)

// Timer invokes a callback periodically until canceled.
type Timer struct {
	handle    core.TimerHandle
	clockType core.ClockType
	closer    *closer
}

// NewTimer wraps a transport timer handle created on a clock of type ct.
// The timer stops once the returned Timer becomes unreachable; keep a
// reference for as long as it should run.
func NewTimer(h core.TimerHandle, ct core.ClockType) *Timer {
	t := &Timer{handle: h, clockType: ct}
	t.closer = track(t, func() error {
		h.Cancel()
		return h.Close()
	})
	return t
}

// ClockType reports which clock drives the timer.
func (t *Timer) ClockType() core.ClockType { return t.clockType }

func (t *Timer) Period() time.Duration { return t.handle.Period() }
func (t *Timer) Cancel()               { t.handle.Cancel() }
func (t *Timer) IsCanceled() bool      { return t.handle.IsCanceled() }

// Reset restarts a canceled timer and rearms its period.
func (t *Timer) Reset() { t.handle.Reset() }

// TimeUntilTrigger returns the time left before the next call, or a
// negative duration when the timer is canceled.
func (t *Timer) TimeUntilTrigger() time.Duration { return t.handle.TimeUntilTrigger() }

// Close cancels the timer and releases the transport handle.
func (t *Timer) Close() error {
	return t.closer.Close()
}
