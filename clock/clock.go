// Package clock provides core.Clock implementations: system and steady
// clocks backed by the runtime, and a manual clock for deterministic tests.
package clock

import (
	"time"

	"github.com/hupe1980/nodemesh/core"
)

// Real is a runtime backed clock.
type Real struct {
	typ core.ClockType
}

// NewSystem returns a wall clock.
func NewSystem() *Real { return &Real{typ: core.ClockSystemTime} }

// NewSteady returns a monotonic clock.
func NewSteady() *Real { return &Real{typ: core.ClockSteadyTime} }

// NewROS returns a clock of ROS time type. Without an external time source
// it follows the wall clock.
func NewROS() *Real { return &Real{typ: core.ClockROSTime} }

// Type implements core.Clock.
func (c *Real) Type() core.ClockType { return c.typ }

// Now implements core.Clock.
func (c *Real) Now() time.Time {
	if c.typ == core.ClockSteadyTime {
		// time.Now carries a monotonic reading; keep it
		return time.Now()
	}
	return time.Now().Round(0)
}

// NewTicker implements core.Clock.
func (c *Real) NewTicker(d time.Duration) core.Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time   { return r.t.C }
func (r *realTicker) Reset(d time.Duration) { r.t.Reset(d) }
func (r *realTicker) Stop()                 { r.t.Stop() }

var (
	_ core.Clock = (*Real)(nil)
	_ core.Clock = (*Manual)(nil)
)
