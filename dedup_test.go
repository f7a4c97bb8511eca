package interactive

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCaptureWindow(t *testing.T) {
	var w captureWindow
	a, b := uuid.New(), uuid.New()

	if w.seen(a, testNow) {
		t.Fatal("first capture reported as seen")
	}
	if !w.seen(a, testNow.Add(time.Second)) {
		t.Error("repeat capture not detected")
	}
	if w.seen(b, testNow) {
		t.Error("distinct id reported as seen")
	}
	if w.seen(a, testNow.Add(captureWindowTTL+2*time.Second)) {
		t.Error("id should expire after the window")
	}
}

func TestCaptureWindowBounded(t *testing.T) {
	var w captureWindow
	first := uuid.New()
	w.seen(first, testNow)
	for i := 0; i < captureWindowSize; i++ {
		w.seen(uuid.New(), testNow)
	}
	if len(w.index) != captureWindowSize || len(w.ring) != captureWindowSize {
		t.Errorf("index %d, ring %d", len(w.index), len(w.ring))
	}
	if w.seen(first, testNow) {
		t.Error("oldest id should have been evicted")
	}
}

func TestCaptureWindowRecapturedIDSurvivesEviction(t *testing.T) {
	var w captureWindow
	id := uuid.New()
	w.seen(id, testNow)
	later := testNow.Add(captureWindowTTL + time.Second)
	if w.seen(id, later) {
		t.Fatal("expired id reported as seen")
	}
	// pushing the first record out of the ring must not forget the second
	for i := 0; i < captureWindowSize-1; i++ {
		w.seen(uuid.New(), later)
	}
	if !w.seen(id, later) {
		t.Error("re-captured id was evicted with its stale slot")
	}
}
