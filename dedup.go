package interactive

import (
	"time"

	"github.com/google/uuid"
)

const (
	captureWindowSize = 1000
	captureWindowTTL  = 5 * time.Minute
)

type captureSlot struct {
	id uuid.UUID
	at time.Time
}

// captureWindow remembers recently captured transaction IDs so a transaction
// is charged at most once. A capture is remembered for captureWindowTTL, or
// until captureWindowSize newer captures push it out of the ring.
type captureWindow struct {
	index map[uuid.UUID]time.Time
	ring  []captureSlot
	head  int // oldest slot once the ring is full
}

// seen reports whether id was captured recently, recording it if not.
func (w *captureWindow) seen(id uuid.UUID, now time.Time) bool {
	if at, ok := w.index[id]; ok && now.Sub(at) <= captureWindowTTL {
		return true
	}
	if w.index == nil {
		w.index = make(map[uuid.UUID]time.Time, captureWindowSize)
	}

	slot := captureSlot{id: id, at: now}
	if len(w.ring) < captureWindowSize {
		w.ring = append(w.ring, slot)
	} else {
		old := w.ring[w.head]
		// the ID may have been captured again since; keep the newer record
		if at, ok := w.index[old.id]; ok && at.Equal(old.at) {
			delete(w.index, old.id)
		}
		w.ring[w.head] = slot
		w.head = (w.head + 1) % captureWindowSize
	}
	w.index[id] = now
	return false
}

func (w *captureWindow) reset() {
	w.index = nil
	w.ring = nil
	w.head = 0
}
