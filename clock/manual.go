package clock

import (
	"sync"
	"time"

	"github.com/hupe1980/nodemesh/core"
)

// Manual is a clock that only moves when Advance is called. Tickers created
// from it fire synchronously from Advance (non-blocking sends, buffer of one,
// like time.Ticker).
type Manual struct {
	mu      sync.Mutex
	typ     core.ClockType
	now     time.Time
	tickers map[*manualTicker]struct{}
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{typ: core.ClockROSTime, now: start, tickers: make(map[*manualTicker]struct{})}
}

// Type implements core.Clock.
func (m *Manual) Type() core.ClockType { return m.typ }

// Now implements core.Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTicker implements core.Clock.
func (m *Manual) NewTicker(d time.Duration) core.Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{clock: m, c: make(chan time.Time, 1), period: d, next: m.now.Add(d)}
	m.tickers[t] = struct{}{}
	return t
}

// Advance moves the clock forward by d, firing every ticker whose deadline
// was crossed. A ticker crossing several periods fires once, as a slow
// receiver of time.Ticker would observe.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	for t := range m.tickers {
		if m.now.Before(t.next) {
			continue
		}
		select {
		case t.c <- m.now:
		default:
		}
		for !m.now.Before(t.next) {
			t.next = t.next.Add(t.period)
		}
	}
}

type manualTicker struct {
	clock  *Manual
	c      chan time.Time
	period time.Duration
	next   time.Time
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Reset(d time.Duration) {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.period = d
	t.next = t.clock.now.Add(d)
	t.clock.tickers[t] = struct{}{}
}

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	delete(t.clock.tickers, t)
}
