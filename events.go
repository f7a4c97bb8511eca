package interactive

import (
	"fmt"
	"slices"
	"time"

	"github.com/NeboLoop/interactive-go-sdk/model"
)

// Event is one queued notification. Events are delivered in the order they
// were produced, during Poll, on the goroutine that calls Poll.
type Event interface {
	Time() time.Time
}

type eventTime struct {
	At time.Time
}

func (e eventTime) Time() time.Time { return e.At }

// StateChangedEvent reports an interactivity state transition.
type StateChangedEvent struct {
	eventTime
	Previous State
	State    State
}

// ParticipantStateChangedEvent reports a participant joining, leaving or
// having input toggled.
type ParticipantStateChangedEvent struct {
	eventTime
	Participant *model.Participant
	Previous    model.ParticipantState
	State       model.ParticipantState
}

// ButtonEvent reports a button press or release.
type ButtonEvent struct {
	eventTime
	SessionID     string
	Participant   *model.Participant // nil if the participant is unknown
	ControlID     string
	Pressed       bool
	TransactionID string // set when the press costs sparks; pass to Capture
	Cost          int
}

// JoystickEvent reports one joystick sample.
type JoystickEvent struct {
	eventTime
	SessionID   string
	Participant *model.Participant
	ControlID   string
	X, Y        float64
}

// MouseButtonEvent reports a mouse press or release on a screen control.
type MouseButtonEvent struct {
	eventTime
	SessionID   string
	Participant *model.Participant
	ControlID   string
	Button      int
	Pressed     bool
}

// CoordinatesEvent reports a pointer move on a screen control.
type CoordinatesEvent struct {
	eventTime
	SessionID   string
	Participant *model.Participant
	ControlID   string
	X, Y        float64
}

// TextInputEvent reports a textbox change or submission.
type TextInputEvent struct {
	eventTime
	SessionID     string
	Participant   *model.Participant
	ControlID     string
	Text          string
	Submitted     bool
	TransactionID string
}

// ErrorEvent reports a runtime failure. Fatal errors stop interactivity;
// everything else is retried or skipped.
type ErrorEvent struct {
	eventTime
	Code    int
	Message string
	Fatal   bool
}

func (e ErrorEvent) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("interactive: %s (code %d)", e.Message, e.Code)
	}
	return "interactive: " + e.Message
}

// MessageEvent carries the raw text of every inbound frame, including frames
// that failed to decode.
type MessageEvent struct {
	eventTime
	Raw string
}

// --------------------------------------------------------------------------
// Handler registration
// --------------------------------------------------------------------------

type handlerEntry[E any] struct {
	id int
	fn func(E)
}

// handlerList is a multicast list of callbacks for one event category.
type handlerList[E any] struct {
	seq     int
	entries []handlerEntry[E]
}

func (l *handlerList[E]) add(fn func(E)) func() {
	l.seq++
	id := l.seq
	l.entries = append(l.entries, handlerEntry[E]{id: id, fn: fn})
	return func() {
		l.entries = slices.DeleteFunc(l.entries, func(h handlerEntry[E]) bool { return h.id == id })
	}
}

func (l *handlerList[E]) call(e E) {
	// a handler may unregister itself or others while we iterate
	for _, h := range slices.Clone(l.entries) {
		h.fn(e)
	}
}

type handlers struct {
	state       handlerList[StateChangedEvent]
	participant handlerList[ParticipantStateChangedEvent]
	button      handlerList[ButtonEvent]
	joystick    handlerList[JoystickEvent]
	mouse       handlerList[MouseButtonEvent]
	coordinates handlerList[CoordinatesEvent]
	text        handlerList[TextInputEvent]
	errors      handlerList[ErrorEvent]
	message     handlerList[MessageEvent]
}

// Each On* method registers a callback and returns a function that removes it.
// Callbacks run inside Poll.

func (s *Session) OnStateChanged(fn func(StateChangedEvent)) func() {
	return s.handlers.state.add(fn)
}

func (s *Session) OnParticipantStateChanged(fn func(ParticipantStateChangedEvent)) func() {
	return s.handlers.participant.add(fn)
}

func (s *Session) OnButton(fn func(ButtonEvent)) func() {
	return s.handlers.button.add(fn)
}

func (s *Session) OnJoystick(fn func(JoystickEvent)) func() {
	return s.handlers.joystick.add(fn)
}

func (s *Session) OnMouseButton(fn func(MouseButtonEvent)) func() {
	return s.handlers.mouse.add(fn)
}

func (s *Session) OnCoordinates(fn func(CoordinatesEvent)) func() {
	return s.handlers.coordinates.add(fn)
}

func (s *Session) OnTextInput(fn func(TextInputEvent)) func() {
	return s.handlers.text.add(fn)
}

func (s *Session) OnError(fn func(ErrorEvent)) func() {
	return s.handlers.errors.add(fn)
}

func (s *Session) OnMessage(fn func(MessageEvent)) func() {
	return s.handlers.message.add(fn)
}

func (s *Session) dispatch(e Event) {
	switch e := e.(type) {
	case StateChangedEvent:
		s.handlers.state.call(e)
	case ParticipantStateChangedEvent:
		s.handlers.participant.call(e)
	case ButtonEvent:
		s.handlers.button.call(e)
	case JoystickEvent:
		s.handlers.joystick.call(e)
	case MouseButtonEvent:
		s.handlers.mouse.call(e)
	case CoordinatesEvent:
		s.handlers.coordinates.call(e)
	case TextInputEvent:
		s.handlers.text.call(e)
	case ErrorEvent:
		s.handlers.errors.call(e)
	case MessageEvent:
		s.handlers.message.call(e)
	}
}
