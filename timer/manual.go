package timer

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by the caller. Nothing fires until Fire or
// Advance is called, which makes time-dependent flows testable.
type Manual struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	pending map[string]manualEntry
}

type manualEntry struct {
	at    time.Duration
	delay time.Duration
	seq   int
	fn    func()
}

// NewManual creates an idle manual scheduler.
func NewManual() *Manual {
	return &Manual{pending: make(map[string]manualEntry)}
}

func (m *Manual) After(name string, d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.pending[name] = manualEntry{at: m.now + d, delay: d, seq: m.seq, fn: fn}
}

func (m *Manual) Cancel(name string) {
	m.mu.Lock()
	delete(m.pending, name)
	m.mu.Unlock()
}

func (m *Manual) CancelAll() {
	m.mu.Lock()
	m.pending = make(map[string]manualEntry)
	m.mu.Unlock()
}

// Delay returns the delay a pending timer was scheduled with.
func (m *Manual) Delay(name string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[name]
	return e.delay, ok
}

// Pending lists scheduled timer names in firing order.
func (m *Manual) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderedLocked()
}

func (m *Manual) orderedLocked() []string {
	names := make([]string, 0, len(m.pending))
	for name := range m.pending {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := m.pending[names[i]], m.pending[names[j]]
		if a.at != b.at {
			return a.at < b.at
		}
		return a.seq < b.seq
	})
	return names
}

// Fire runs the named timer immediately if it is pending.
func (m *Manual) Fire(name string) bool {
	m.mu.Lock()
	e, ok := m.pending[name]
	if ok {
		delete(m.pending, name)
	}
	m.mu.Unlock()
	if ok {
		e.fn()
	}
	return ok
}

// Advance moves the clock forward by d and fires everything that came due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	var due []manualEntry
	for _, name := range m.orderedLocked() {
		if e := m.pending[name]; e.at <= m.now {
			due = append(due, e)
			delete(m.pending, name)
		}
	}
	m.mu.Unlock()
	for _, e := range due {
		e.fn()
	}
}
