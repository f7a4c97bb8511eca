// Package input turns streamed giveInput events into per-tick control state.
//
// Events accumulate in a "next" buffer. Rotate, called exactly once per poll,
// shifts next into current (and current into previous), so every query made
// between two rotations sees the same snapshot and no event is lost.
package input

// ButtonState is the edge view of a button or mouse button for one tick.
type ButtonState struct {
	IsDown    bool // a down edge happened this tick
	IsPressed bool // held at some point this tick
	IsUp      bool // an up edge happened this tick
}

// ButtonCounts counts button edges within one tick. Pressed counts down edges
// plus one when the tick started with the button still held.
type ButtonCounts struct {
	Down    uint
	Pressed uint
	Up      uint
}

// Coordinates is a point in control space.
type Coordinates struct {
	X float64
	Y float64
}

// edge is the look-ahead flag machine shared by buttons and mouse buttons.
// holders counts the participants currently holding it: at most one for a
// participant's own record, any number for a control aggregate.
type edge struct {
	cur     ButtonState
	next    ButtonState
	holders int
}

func (e *edge) held() bool { return e.holders > 0 }

// down records a down edge. grab is set when the edge starts a new hold.
func (e *edge) down(grab bool) {
	e.next.IsDown = true
	e.next.IsPressed = true
	if grab {
		e.holders++
	}
}

// up records an up edge. release is set when the edge ends a hold.
func (e *edge) up(release bool) {
	e.next.IsUp = true
	if release && e.holders > 0 {
		e.holders--
	}
}

// rotate publishes next and seeds the following tick: a button that went down
// without coming up is still pressed.
func (e *edge) rotate() {
	e.cur = e.next
	e.next = ButtonState{IsPressed: e.held()}
}

type button struct {
	edge
	prev, curCounts, nextCounts ButtonCounts
}

func (b *button) down(grab bool) {
	b.edge.down(grab)
	b.nextCounts.Down++
	b.nextCounts.Pressed++
}

func (b *button) up(release bool) {
	b.edge.up(release)
	b.nextCounts.Up++
}

func (b *button) rotate() {
	b.edge.rotate()
	b.prev = b.curCounts
	b.curCounts = b.nextCounts
	b.nextCounts = ButtonCounts{}
	if b.held() {
		b.nextCounts.Pressed = 1
	}
}

// joystick keeps a running average of the samples received this tick.
type joystick struct {
	cur  Coordinates
	next Coordinates
	n    int
}

// sample folds one reading into the running average:
// avg = avg*(n-1)/n + s/n.
func (j *joystick) sample(x, y float64) {
	j.n++
	n := float64(j.n)
	j.next.X = j.next.X*(n-1)/n + x/n
	j.next.Y = j.next.Y*(n-1)/n + y/n
}

// rotate publishes the tick's average. A tick without samples keeps the last
// published position.
func (j *joystick) rotate() {
	if j.n > 0 {
		j.cur = j.next
	}
	j.next = Coordinates{}
	j.n = 0
}
