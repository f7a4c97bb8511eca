package frame

import "sync"

// IDGen hands out message IDs. IDs increase monotonically for the life of the
// generator and only restart after Reset.
type IDGen struct {
	mu   sync.Mutex
	last uint32
}

// Next returns the next message ID.
func (g *IDGen) Next() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last++
	return g.last
}

// Reset restarts numbering so the next ID is 1.
func (g *IDGen) Reset() {
	g.mu.Lock()
	g.last = 0
	g.mu.Unlock()
}
