// Package model holds the in-memory tables of scenes, groups, participants
// and controls that mirror the service's view of the interactive session.
package model

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/NeboLoop/interactive-go-sdk/wire"
)

// Scene is a named set of controls. Controls point at their scene by ID.
type Scene struct {
	ID   string
	Etag string
	Meta json.RawMessage
}

// Group is an audience segment showing exactly one scene.
type Group struct {
	ID      string
	SceneID string
	Etag    string
	Meta    json.RawMessage
}

// ParticipantState tracks a viewer's presence.
type ParticipantState int

const (
	ParticipantJoined ParticipantState = iota
	ParticipantInputDisabled
	ParticipantLeft
)

func (s ParticipantState) String() string {
	switch s {
	case ParticipantJoined:
		return "Joined"
	case ParticipantInputDisabled:
		return "InputDisabled"
	case ParticipantLeft:
		return "Left"
	}
	return "Unknown"
}

// Participant is a connected viewer. SessionID is the join key for every
// per-participant table; UserID may repeat across reconnects.
type Participant struct {
	SessionID     string
	UserID        uint64
	UserName      string
	Level         int
	GroupID       string
	ConnectedAt   time.Time
	LastInputAt   time.Time
	InputDisabled bool
	State         ParticipantState
	Etag          string
}

// Kind discriminates the Control union.
type Kind int

const (
	KindGeneric Kind = iota
	KindButton
	KindJoystick
	KindTextbox
	KindLabel
	KindScreen
)

// ParseKind maps a wire kind name to a Kind. Unknown kinds are generic.
func ParseKind(s string) Kind {
	switch s {
	case wire.KindButton:
		return KindButton
	case wire.KindJoystick:
		return KindJoystick
	case wire.KindTextbox:
		return KindTextbox
	case wire.KindLabel:
		return KindLabel
	case wire.KindScreen:
		return KindScreen
	}
	return KindGeneric
}

func (k Kind) String() string {
	switch k {
	case KindButton:
		return wire.KindButton
	case KindJoystick:
		return wire.KindJoystick
	case KindTextbox:
		return wire.KindTextbox
	case KindLabel:
		return wire.KindLabel
	case KindScreen:
		return wire.KindScreen
	}
	return "generic"
}

// ButtonFields are only meaningful when Kind is KindButton.
type ButtonFields struct {
	Cost              int
	Progress          float64
	KeyCode           int
	CooldownExpiresAt time.Time
}

// JoystickFields are only meaningful when Kind is KindJoystick.
type JoystickFields struct {
	SampleRate int
}

// TextboxFields are only meaningful when Kind is KindTextbox.
type TextboxFields struct {
	Placeholder string
	Cost        int
}

// Control is a server-authored interactive element. The kind-specific
// payload lives in the field matching Kind.
type Control struct {
	ID       string
	SceneID  string
	Kind     Kind
	Disabled bool
	Text     string
	HelpText string
	Etag     string
	Meta     json.RawMessage

	Button   ButtonFields
	Joystick JoystickFields
	Textbox  TextboxFields
}

// CoolingDown reports whether a button's cooldown is still running at now.
func (c *Control) CoolingDown(now time.Time) bool {
	return c.Kind == KindButton && now.Before(c.Button.CooldownExpiresAt)
}

func epochMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func controlFromWire(sceneID string, w wire.Control) *Control {
	c := &Control{
		ID:       w.ControlID,
		SceneID:  sceneID,
		Kind:     ParseKind(w.Kind),
		Disabled: w.Disabled,
		Text:     w.Text,
		HelpText: w.Tooltip,
		Etag:     w.Etag,
		Meta:     w.Meta,
	}
	switch c.Kind {
	case KindButton:
		c.Button = ButtonFields{
			Cost:              w.Cost,
			Progress:          w.Progress,
			KeyCode:           w.KeyCode,
			CooldownExpiresAt: epochMillis(w.Cooldown),
		}
	case KindJoystick:
		c.Joystick = JoystickFields{SampleRate: w.SampleRate}
	case KindTextbox:
		c.Textbox = TextboxFields{Placeholder: w.Placeholder, Cost: w.Cost}
	}
	return c
}

func participantFromWire(w wire.Participant) Participant {
	state := ParticipantJoined
	if w.Disabled {
		state = ParticipantInputDisabled
	}
	return Participant{
		SessionID:     w.SessionID,
		UserID:        w.UserID,
		UserName:      w.Username,
		Level:         w.Level,
		GroupID:       w.GroupID,
		ConnectedAt:   epochMillis(w.ConnectedAt),
		LastInputAt:   epochMillis(w.LastInputAt),
		InputDisabled: w.Disabled,
		State:         state,
		Etag:          w.Etag,
	}
}
