package endpoint

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// closer closes a transport handle exactly once, either explicitly or when
// its owning endpoint becomes unreachable.
type closer struct {
	once   sync.Once
	closed atomic.Bool
	fn     func() error
	err    error
}

// track returns a closer for fn that also runs once owner is unreachable.
// fn must not reference owner.
func track[T any](owner *T, fn func() error) *closer {
	c := &closer{fn: fn}
	runtime.AddCleanup(owner, func(c *closer) { _ = c.Close() }, c)
	return c
}

func (c *closer) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		c.err = c.fn()
	})
	return c.err
}

func (c *closer) isClosed() bool { return c.closed.Load() }
