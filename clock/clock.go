// Package clock provides an injectable time source.
//
// The file store stamps creation, modification and access times on
// nodes. Production code injects Real(); tests inject a Fake whose
// time only moves when told to, so time-valued attributes are
// deterministic.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source consumed by the file store.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by the system clock.
func Real() Clock { return realClock{} }

// Fake is a manually advanced Clock.
//
// The zero value is not usable; construct with NewFake.
type Fake struct {
	mtx sync.Mutex
	now time.Time
}

// NewFake returns a Fake pinned at the given instant.
func NewFake(at time.Time) *Fake {
	return &Fake{now: at}
}

func (f *Fake) Now() time.Time {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.now
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the fake time to the given instant.
func (f *Fake) Set(at time.Time) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.now = at
}

var _ Clock = (*Fake)(nil)
