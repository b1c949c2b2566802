// Package refcount provides an explicit reference count with a one-shot
// disposal callback, for values shared by several independently finishing
// background tasks.
package refcount

import (
	"fmt"
	"sync/atomic"
)

// disposed is stored in the count once the dispose callback has fired.
const disposed = -1

// Counted is a reference count that starts at zero. The creator must call
// AddRef before handing the value out; Release disposes it when the count
// returns to zero.
//
// A value that is released without ever having been referenced is disposed
// on that first release. Any AddRef or Release after disposal panics: that
// is always a programming error in the caller.
type Counted struct {
	count   atomic.Int64
	dispose func()
}

// New returns a counter that calls dispose exactly once.
func New(dispose func()) *Counted {
	return &Counted{dispose: dispose}
}

// Init sets the dispose callback on a zero Counted embedded in another
// struct. It must be called before the value is shared.
func (c *Counted) Init(dispose func()) {
	c.dispose = dispose
}

// AddRef increments the count and returns the new value.
func (c *Counted) AddRef() int64 {
	for {
		cur := c.count.Load()
		if cur == disposed {
			panic("refcount: AddRef on disposed value")
		}
		if c.count.CompareAndSwap(cur, cur+1) {
			return cur + 1
		}
	}
}

// Release decrements the count and returns the number of references that
// remain. Zero means the value has been disposed by this call.
func (c *Counted) Release() int64 {
	for {
		cur := c.count.Load()
		if cur == disposed {
			panic("refcount: Release on disposed value")
		}
		if cur <= 1 {
			// Last reference, or a value nobody referenced.
			if c.count.CompareAndSwap(cur, disposed) {
				if c.dispose != nil {
					c.dispose()
				}
				return 0
			}
			continue
		}
		if c.count.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}

// Count returns the current number of references, or -1 once disposed.
func (c *Counted) Count() int64 {
	return c.count.Load()
}

// Disposed reports whether the dispose callback has run.
func (c *Counted) Disposed() bool {
	return c.count.Load() == disposed
}

func (c *Counted) String() string {
	if c.Disposed() {
		return "refcount(disposed)"
	}
	return fmt.Sprintf("refcount(%d)", c.Count())
}
