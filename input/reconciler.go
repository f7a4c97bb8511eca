package input

type key struct {
	session string
	control string
}

// Reconciler holds input state per (participant session, control) and an
// aggregate per control across all participants. It is owned by a single
// goroutine and does no locking.
type Reconciler struct {
	buttons        map[key]*button
	controlButtons map[string]*button

	joysticks        map[key]*joystick
	controlJoysticks map[string]*joystick

	mice        map[key]*edge
	controlMice map[string]*edge

	coords        map[key]Coordinates
	controlCoords map[string]Coordinates

	text        map[key]string
	controlText map[string]string
}

// NewReconciler returns empty input tables.
func NewReconciler() *Reconciler {
	r := &Reconciler{}
	r.Reset()
	return r
}

// Reset forgets all input.
func (r *Reconciler) Reset() {
	r.buttons = make(map[key]*button)
	r.controlButtons = make(map[string]*button)
	r.joysticks = make(map[key]*joystick)
	r.controlJoysticks = make(map[string]*joystick)
	r.mice = make(map[key]*edge)
	r.controlMice = make(map[string]*edge)
	r.coords = make(map[key]Coordinates)
	r.controlCoords = make(map[string]Coordinates)
	r.text = make(map[key]string)
	r.controlText = make(map[string]string)
}

// Rotate advances every buffer by one tick.
func (r *Reconciler) Rotate() {
	for _, b := range r.buttons {
		b.rotate()
	}
	for _, b := range r.controlButtons {
		b.rotate()
	}
	for _, j := range r.joysticks {
		j.rotate()
	}
	for _, j := range r.controlJoysticks {
		j.rotate()
	}
	for _, m := range r.mice {
		m.rotate()
	}
	for _, m := range r.controlMice {
		m.rotate()
	}
}

// --------------------------------------------------------------------------
// Recording
// --------------------------------------------------------------------------

func (r *Reconciler) buttonsFor(session, control string) (*button, *button) {
	k := key{session, control}
	b, ok := r.buttons[k]
	if !ok {
		b = &button{}
		r.buttons[k] = b
	}
	agg, ok := r.controlButtons[control]
	if !ok {
		agg = &button{}
		r.controlButtons[control] = agg
	}
	return b, agg
}

// ButtonDown records a down edge. The aggregate stays held while any
// participant holds the button.
func (r *Reconciler) ButtonDown(session, control string) {
	b, agg := r.buttonsFor(session, control)
	grab := !b.held()
	b.down(grab)
	agg.down(grab)
}

// ButtonUp records an up edge.
func (r *Reconciler) ButtonUp(session, control string) {
	b, agg := r.buttonsFor(session, control)
	release := b.held()
	b.up(release)
	agg.up(release)
}

// JoystickMove records one joystick sample.
func (r *Reconciler) JoystickMove(session, control string, x, y float64) {
	k := key{session, control}
	j, ok := r.joysticks[k]
	if !ok {
		j = &joystick{}
		r.joysticks[k] = j
	}
	agg, ok := r.controlJoysticks[control]
	if !ok {
		agg = &joystick{}
		r.controlJoysticks[control] = agg
	}
	j.sample(x, y)
	agg.sample(x, y)
}

func (r *Reconciler) miceFor(session, control string) (*edge, *edge) {
	k := key{session, control}
	m, ok := r.mice[k]
	if !ok {
		m = &edge{}
		r.mice[k] = m
	}
	agg, ok := r.controlMice[control]
	if !ok {
		agg = &edge{}
		r.controlMice[control] = agg
	}
	return m, agg
}

// MouseDown records a mouse button press on a screen control.
func (r *Reconciler) MouseDown(session, control string) {
	m, agg := r.miceFor(session, control)
	grab := !m.held()
	m.down(grab)
	agg.down(grab)
}

// MouseUp records a mouse button release on a screen control.
func (r *Reconciler) MouseUp(session, control string) {
	m, agg := r.miceFor(session, control)
	release := m.held()
	m.up(release)
	agg.up(release)
}

// Release ends every hold a participant still has, as if each button and
// mouse button they held had come up. Used when the participant leaves.
func (r *Reconciler) Release(session string) {
	for k, b := range r.buttons {
		if k.session == session && b.held() {
			r.ButtonUp(session, k.control)
		}
	}
	for k, m := range r.mice {
		if k.session == session && m.held() {
			r.MouseUp(session, k.control)
		}
	}
}

// SetCoordinates records the latest pointer position. Last value wins.
func (r *Reconciler) SetCoordinates(session, control string, x, y float64) {
	c := Coordinates{X: x, Y: y}
	r.coords[key{session, control}] = c
	r.controlCoords[control] = c
}

// SetText records the latest text value. Last value wins.
func (r *Reconciler) SetText(session, control, value string) {
	r.text[key{session, control}] = value
	r.controlText[control] = value
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

// Button returns the aggregate edge state of a button for this tick.
func (r *Reconciler) Button(control string) ButtonState {
	if b := r.controlButtons[control]; b != nil {
		return b.cur
	}
	return ButtonState{}
}

// ButtonFor returns one participant's edge state of a button for this tick.
func (r *Reconciler) ButtonFor(session, control string) ButtonState {
	if b := r.buttons[key{session, control}]; b != nil {
		return b.cur
	}
	return ButtonState{}
}

// Counts returns the aggregate edge counts of a button for this tick.
func (r *Reconciler) Counts(control string) ButtonCounts {
	if b := r.controlButtons[control]; b != nil {
		return b.curCounts
	}
	return ButtonCounts{}
}

// CountsFor returns one participant's edge counts for this tick.
func (r *Reconciler) CountsFor(session, control string) ButtonCounts {
	if b := r.buttons[key{session, control}]; b != nil {
		return b.curCounts
	}
	return ButtonCounts{}
}

// PreviousCounts returns the aggregate counts of the tick before this one.
func (r *Reconciler) PreviousCounts(control string) ButtonCounts {
	if b := r.controlButtons[control]; b != nil {
		return b.prev
	}
	return ButtonCounts{}
}

// Joystick returns the averaged position across all participants.
func (r *Reconciler) Joystick(control string) Coordinates {
	if j := r.controlJoysticks[control]; j != nil {
		return j.cur
	}
	return Coordinates{}
}

// JoystickFor returns one participant's averaged position.
func (r *Reconciler) JoystickFor(session, control string) Coordinates {
	if j := r.joysticks[key{session, control}]; j != nil {
		return j.cur
	}
	return Coordinates{}
}

// Mouse returns the aggregate mouse button state of a screen control.
func (r *Reconciler) Mouse(control string) ButtonState {
	if m := r.controlMice[control]; m != nil {
		return m.cur
	}
	return ButtonState{}
}

// MouseFor returns one participant's mouse button state.
func (r *Reconciler) MouseFor(session, control string) ButtonState {
	if m := r.mice[key{session, control}]; m != nil {
		return m.cur
	}
	return ButtonState{}
}

// Coordinates returns the latest pointer position reported for a control.
func (r *Reconciler) Coordinates(control string) (Coordinates, bool) {
	c, ok := r.controlCoords[control]
	return c, ok
}

// CoordinatesFor returns one participant's latest pointer position.
func (r *Reconciler) CoordinatesFor(session, control string) (Coordinates, bool) {
	c, ok := r.coords[key{session, control}]
	return c, ok
}

// Text returns the latest text submitted to a control by anyone.
func (r *Reconciler) Text(control string) string {
	return r.controlText[control]
}

// TextFor returns the latest text a participant submitted to a control.
func (r *Reconciler) TextFor(session, control string) string {
	return r.text[key{session, control}]
}
