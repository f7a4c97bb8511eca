// Package timer schedules named one-shot callbacks. Scheduling a name that is
// already pending replaces the earlier callback, so each kind of deferred work
// (auth polling, short-code expiry, reconnect) has at most one timer in flight.
package timer

import (
	"sync"
	"time"
)

// Scheduler runs callbacks after a delay on a goroutine of its choosing.
// Callbacks must not call back into the Scheduler.
type Scheduler interface {
	After(name string, d time.Duration, fn func())
	Cancel(name string)
	CancelAll()
}

type entry struct {
	t  *time.Timer
	fn func()
}

// Real is a Scheduler backed by time.AfterFunc. Once Cancel or CancelAll
// returns, the cancelled callbacks are guaranteed not to run.
type Real struct {
	mu      sync.Mutex
	pending map[string]*entry
}

// NewReal creates a Scheduler that uses wall-clock timers.
func NewReal() *Real {
	return &Real{pending: make(map[string]*entry)}
}

func (r *Real) After(name string, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old := r.pending[name]; old != nil {
		old.t.Stop()
	}
	e := &entry{fn: fn}
	e.t = time.AfterFunc(d, func() { r.fire(name, e) })
	r.pending[name] = e
}

// fire runs under the lock so a concurrent Cancel either wins outright or
// waits until the callback has finished.
func (r *Real) fire(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending[name] != e {
		return
	}
	delete(r.pending, name)
	e.fn()
}

func (r *Real) Cancel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e := r.pending[name]; e != nil {
		e.t.Stop()
		delete(r.pending, name)
	}
}

func (r *Real) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, e := range r.pending {
		e.t.Stop()
		delete(r.pending, name)
	}
}
