package input

import "testing"

func TestButtonEdgeCounts(t *testing.T) {
	r := NewReconciler()
	for i := 0; i < 3; i++ {
		r.ButtonDown("p1", "jump")
		r.ButtonUp("p1", "jump")
	}
	if got := r.Counts("jump"); got.Down != 0 {
		t.Fatalf("counts visible before rotate: %+v", got)
	}

	r.Rotate()
	if got := r.Counts("jump"); got.Down != 3 || got.Up != 3 || got.Pressed != 3 {
		t.Errorf("first tick: %+v", got)
	}
	if s := r.Button("jump"); !s.IsDown || !s.IsUp || !s.IsPressed {
		t.Errorf("first tick state: %+v", s)
	}

	r.Rotate()
	if got := r.Counts("jump"); got != (ButtonCounts{}) {
		t.Errorf("second tick should reset: %+v", got)
	}
	if got := r.PreviousCounts("jump"); got.Down != 3 {
		t.Errorf("previous tick: %+v", got)
	}
	if s := r.Button("jump"); s != (ButtonState{}) {
		t.Errorf("second tick state: %+v", s)
	}
}

func TestButtonHeldAcrossTicks(t *testing.T) {
	r := NewReconciler()
	r.ButtonDown("p1", "fire")
	r.Rotate()
	if s := r.ButtonFor("p1", "fire"); !s.IsDown || !s.IsPressed || s.IsUp {
		t.Fatalf("down tick: %+v", s)
	}

	r.Rotate()
	s := r.ButtonFor("p1", "fire")
	if s.IsDown || !s.IsPressed || s.IsUp {
		t.Errorf("held tick: %+v", s)
	}
	if c := r.CountsFor("p1", "fire"); c.Down != 0 || c.Pressed != 1 {
		t.Errorf("held tick counts: %+v", c)
	}

	r.ButtonUp("p1", "fire")
	r.Rotate()
	if s := r.ButtonFor("p1", "fire"); !s.IsUp || !s.IsPressed {
		t.Errorf("release tick: %+v", s)
	}
	r.Rotate()
	if s := r.ButtonFor("p1", "fire"); s.IsPressed {
		t.Errorf("released button still pressed: %+v", s)
	}
}

func TestEventsBetweenRotationsWaitForNextTick(t *testing.T) {
	r := NewReconciler()
	r.ButtonDown("p1", "a")
	r.Rotate()

	// arrives while the application is reading the current tick
	r.ButtonDown("p2", "a")
	if c := r.Counts("a"); c.Down != 1 {
		t.Fatalf("current tick changed under the reader: %+v", c)
	}
	r.Rotate()
	if c := r.CountsFor("p2", "a"); c.Down != 1 {
		t.Errorf("late event lost: %+v", c)
	}
}

func TestAggregateAndParticipantAreIndependent(t *testing.T) {
	r := NewReconciler()
	r.ButtonDown("p1", "a")
	r.ButtonDown("p2", "a")
	r.ButtonUp("p2", "a")
	r.Rotate()

	if c := r.Counts("a"); c.Down != 2 || c.Up != 1 {
		t.Errorf("aggregate: %+v", c)
	}
	if c := r.CountsFor("p1", "a"); c.Down != 1 || c.Up != 0 {
		t.Errorf("p1: %+v", c)
	}
	if c := r.CountsFor("nobody", "a"); c != (ButtonCounts{}) {
		t.Errorf("unknown participant: %+v", c)
	}
}

func TestAggregateHeldWhileAnyParticipantHolds(t *testing.T) {
	r := NewReconciler()
	r.ButtonDown("a", "jump")
	r.ButtonDown("b", "jump")
	r.ButtonUp("b", "jump")
	r.Rotate()
	r.Rotate()

	if s := r.ButtonFor("a", "jump"); !s.IsPressed {
		t.Fatalf("a: %+v", s)
	}
	if s := r.Button("jump"); !s.IsPressed {
		t.Errorf("a still holds jump but the aggregate is not pressed: %+v", s)
	}
	if c := r.Counts("jump"); c.Pressed != 1 {
		t.Errorf("aggregate counts while held: %+v", c)
	}

	// a repeated down from a holder does not take a second hold
	r.ButtonDown("a", "jump")
	r.ButtonUp("a", "jump")
	r.Rotate()
	r.Rotate()
	if s := r.Button("jump"); s.IsPressed {
		t.Errorf("nobody holds jump: %+v", s)
	}

	// an up without a matching down must not release someone else's hold
	r.ButtonDown("a", "jump")
	r.ButtonUp("c", "jump")
	r.Rotate()
	r.Rotate()
	if s := r.Button("jump"); !s.IsPressed {
		t.Errorf("stray up released a's hold: %+v", s)
	}
}

func TestMouseAggregateHeldWhileAnyParticipantHolds(t *testing.T) {
	r := NewReconciler()
	r.MouseDown("a", "screen")
	r.MouseDown("b", "screen")
	r.MouseUp("a", "screen")
	r.Rotate()
	r.Rotate()
	if s := r.Mouse("screen"); !s.IsPressed {
		t.Errorf("b still holds the mouse: %+v", s)
	}
}

func TestReleaseEndsParticipantHolds(t *testing.T) {
	r := NewReconciler()
	r.ButtonDown("a", "jump")
	r.MouseDown("a", "screen")
	r.ButtonDown("b", "jump")
	r.Rotate()

	r.Release("a")
	r.Rotate()
	if s := r.ButtonFor("a", "jump"); !s.IsUp {
		t.Errorf("release should report an up edge: %+v", s)
	}
	r.Rotate()
	if s := r.ButtonFor("a", "jump"); s.IsPressed {
		t.Errorf("a still pressed after release: %+v", s)
	}
	if s := r.Mouse("screen"); s.IsPressed {
		t.Errorf("mouse still pressed after release: %+v", s)
	}
	if s := r.Button("jump"); !s.IsPressed {
		t.Errorf("b's hold must survive a's release: %+v", s)
	}
}

func TestJoystickAverages(t *testing.T) {
	r := NewReconciler()
	r.JoystickMove("p1", "stick", 1, 0)
	r.JoystickMove("p1", "stick", 0, 1)
	r.JoystickMove("p2", "stick", -1, -1)
	r.Rotate()

	if got := r.JoystickFor("p1", "stick"); got != (Coordinates{X: 0.5, Y: 0.5}) {
		t.Errorf("p1 average: %+v", got)
	}
	got := r.Joystick("stick")
	if !near(got.X, 0) || !near(got.Y, 0) {
		t.Errorf("aggregate average: %+v", got)
	}

	// no samples: the last published position stays
	r.Rotate()
	if got := r.JoystickFor("p1", "stick"); got != (Coordinates{X: 0.5, Y: 0.5}) {
		t.Errorf("idle tick: %+v", got)
	}

	r.JoystickMove("p1", "stick", -0.25, 1)
	r.Rotate()
	if got := r.JoystickFor("p1", "stick"); got != (Coordinates{X: -0.25, Y: 1}) {
		t.Errorf("fresh tick should not blend with the previous one: %+v", got)
	}
}

func TestMouseLookAhead(t *testing.T) {
	r := NewReconciler()
	r.MouseDown("p1", "screen")
	r.Rotate()
	if s := r.MouseFor("p1", "screen"); !s.IsDown || !s.IsPressed {
		t.Errorf("down: %+v", s)
	}
	r.Rotate()
	if s := r.Mouse("screen"); s.IsDown || !s.IsPressed {
		t.Errorf("held: %+v", s)
	}
	r.MouseUp("p1", "screen")
	r.Rotate()
	r.Rotate()
	if s := r.Mouse("screen"); s != (ButtonState{}) {
		t.Errorf("released: %+v", s)
	}
}

func TestLastValueWins(t *testing.T) {
	r := NewReconciler()
	r.SetText("p1", "name", "a")
	r.SetText("p2", "name", "b")
	r.SetCoordinates("p1", "screen", 10, 20)
	r.SetCoordinates("p1", "screen", 30, 40)

	if r.Text("name") != "b" || r.TextFor("p1", "name") != "a" {
		t.Errorf("text: %q / %q", r.Text("name"), r.TextFor("p1", "name"))
	}
	if c, ok := r.CoordinatesFor("p1", "screen"); !ok || c != (Coordinates{30, 40}) {
		t.Errorf("coordinates: %+v %v", c, ok)
	}
	if _, ok := r.Coordinates("other"); ok {
		t.Error("unknown control should report no coordinates")
	}

	r.Reset()
	if r.Text("name") != "" {
		t.Error("reset should clear text")
	}
}

func near(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
