package interactive

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/NeboLoop/interactive-go-sdk/input"
	"github.com/NeboLoop/interactive-go-sdk/model"
	"github.com/NeboLoop/interactive-go-sdk/wire"
)

var (
	ErrUnknownControl     = errors.New("interactive: unknown control")
	ErrUnknownGroup       = errors.New("interactive: unknown group")
	ErrUnknownParticipant = errors.New("interactive: unknown participant")
	ErrUnknownScene       = errors.New("interactive: unknown scene")
)

// --------------------------------------------------------------------------
// Model accessors
// --------------------------------------------------------------------------

func (s *Session) Scenes() []*model.Scene           { return s.store.Scenes() }
func (s *Session) Scene(id string) *model.Scene     { return s.store.Scene(id) }
func (s *Session) Groups() []*model.Group           { return s.store.Groups() }
func (s *Session) Group(id string) *model.Group     { return s.store.Group(id) }
func (s *Session) Controls() []*model.Control       { return s.store.Controls() }
func (s *Session) Control(id string) *model.Control { return s.store.Control(id) }

// Participants lists every participant seen this session, including those
// that left.
func (s *Session) Participants() []*model.Participant { return s.store.Participants() }

// Participant looks a participant up by session ID.
func (s *Session) Participant(sessionID string) *model.Participant {
	return s.store.Participant(sessionID)
}

// ParticipantByUserID resolves a user ID to that user's most recent session.
// User IDs are not unique across reconnects; prefer Participant.
func (s *Session) ParticipantByUserID(userID uint64) *model.Participant {
	return s.store.ParticipantByUserID(userID)
}

func (s *Session) ParticipantsInGroup(groupID string) []*model.Participant {
	return s.store.ParticipantsInGroup(groupID)
}

func (s *Session) Buttons() []*model.Control   { return s.store.ControlsOfKind(model.KindButton) }
func (s *Session) Joysticks() []*model.Control { return s.store.ControlsOfKind(model.KindJoystick) }
func (s *Session) Textboxes() []*model.Control { return s.store.ControlsOfKind(model.KindTextbox) }

func (s *Session) ControlsInScene(sceneID string) []*model.Control {
	return s.store.ControlsInScene(sceneID)
}

// --------------------------------------------------------------------------
// Input queries. All of them read the snapshot taken at the last Poll.
// --------------------------------------------------------------------------

func (s *Session) Button(controlID string) input.ButtonState { return s.input.Button(controlID) }

func (s *Session) ButtonFor(sessionID, controlID string) input.ButtonState {
	return s.input.ButtonFor(sessionID, controlID)
}

// ButtonCounts returns how many down, pressed and up edges all participants
// produced on a button during the last tick.
func (s *Session) ButtonCounts(controlID string) input.ButtonCounts { return s.input.Counts(controlID) }

func (s *Session) ButtonCountsFor(sessionID, controlID string) input.ButtonCounts {
	return s.input.CountsFor(sessionID, controlID)
}

func (s *Session) Joystick(controlID string) input.Coordinates { return s.input.Joystick(controlID) }

func (s *Session) JoystickFor(sessionID, controlID string) input.Coordinates {
	return s.input.JoystickFor(sessionID, controlID)
}

func (s *Session) MouseButton(controlID string) input.ButtonState { return s.input.Mouse(controlID) }

func (s *Session) MouseButtonFor(sessionID, controlID string) input.ButtonState {
	return s.input.MouseFor(sessionID, controlID)
}

func (s *Session) Coordinates(controlID string) (input.Coordinates, bool) {
	return s.input.Coordinates(controlID)
}

func (s *Session) CoordinatesFor(sessionID, controlID string) (input.Coordinates, bool) {
	return s.input.CoordinatesFor(sessionID, controlID)
}

func (s *Session) Text(controlID string) string { return s.input.Text(controlID) }

func (s *Session) TextFor(sessionID, controlID string) string {
	return s.input.TextFor(sessionID, controlID)
}

// --------------------------------------------------------------------------
// Mutations. Property changes are batched and sent at the end of Poll.
// --------------------------------------------------------------------------

func (s *Session) control(id string) (*model.Control, error) {
	c := s.store.Control(id)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return c, nil
}

func (s *Session) SetDisabled(controlID string, disabled bool) error {
	c, err := s.control(controlID)
	if err != nil {
		return err
	}
	s.batcher.SetDisabled(c.SceneID, c.ID, c.Etag, disabled)
	return nil
}

// SetProgress sets a button's progress bar, from 0 to 1.
func (s *Session) SetProgress(controlID string, progress float64) error {
	c, err := s.control(controlID)
	if err != nil {
		return err
	}
	s.batcher.SetProgress(c.SceneID, c.ID, c.Etag, progress)
	return nil
}

func (s *Session) SetText(controlID, text string) error {
	c, err := s.control(controlID)
	if err != nil {
		return err
	}
	s.batcher.SetText(c.SceneID, c.ID, c.Etag, text)
	return nil
}

func (s *Session) SetHelpText(controlID, text string) error {
	c, err := s.control(controlID)
	if err != nil {
		return err
	}
	s.batcher.SetTooltip(c.SceneID, c.ID, c.Etag, text)
	return nil
}

// SetCost sets the spark cost of a button.
func (s *Session) SetCost(controlID string, cost int) error {
	c, err := s.control(controlID)
	if err != nil {
		return err
	}
	s.batcher.SetCost(c.SceneID, c.ID, c.Etag, cost)
	return nil
}

// SetParticipantGroup moves a participant into another group.
func (s *Session) SetParticipantGroup(sessionID, groupID string) error {
	p := s.store.Participant(sessionID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, sessionID)
	}
	if s.store.Group(groupID) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	s.batcher.SetParticipantGroup(sessionID, groupID, p.Etag)
	return nil
}

// SetParticipantInputDisabled blocks or unblocks a participant's input.
func (s *Session) SetParticipantInputDisabled(sessionID string, disabled bool) error {
	p := s.store.Participant(sessionID)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, sessionID)
	}
	s.batcher.SetParticipantDisabled(sessionID, p.Etag, disabled)
	return nil
}

// SetGroupScene shows sceneID to everyone in groupID.
func (s *Session) SetGroupScene(groupID, sceneID string) error {
	g := s.store.Group(groupID)
	if g == nil {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	s.batcher.SetGroupScene(groupID, sceneID, g.Etag)
	return nil
}

// UpdateScene replaces the metadata of a scene. It is sent immediately with
// the scene's etag; the stored scene is updated from the reply.
func (s *Session) UpdateScene(sceneID string, meta json.RawMessage) error {
	sc := s.store.Scene(sceneID)
	if sc == nil {
		return fmt.Errorf("%w: %s", ErrUnknownScene, sceneID)
	}
	return s.sendTracked(wire.MethodUpdateScenes, wire.MethodUpdateScenes, wire.UpdateScenesPayload{
		Scenes: []wire.Scene{{SceneID: sc.ID, Etag: sc.Etag, Meta: meta}},
	})
}

// SetCurrentScene moves the default group onto sceneID. Unlike the batched
// mutations it is sent immediately and its reply updates the group.
func (s *Session) SetCurrentScene(sceneID string) error {
	g := s.store.Group(wire.DefaultGroupID)
	return s.sendTracked(wire.MethodUpdateGroups, trackSetCurrentScene, wire.GroupsPayload{
		Groups: []wire.Group{{GroupID: g.ID, SceneID: sceneID, Etag: g.Etag}},
	})
}

// CreateGroup asks the service to create a group showing sceneID. It panics
// if the session has not finished initializing.
func (s *Session) CreateGroup(groupID, sceneID string) error {
	if !s.ready {
		panic("interactive: CreateGroup called before the session is Initialized")
	}
	if sceneID == "" {
		sceneID = wire.DefaultGroupID
	}
	return s.sendTracked(wire.MethodCreateGroups, wire.MethodCreateGroups, wire.GroupsPayload{
		Groups: []wire.Group{{GroupID: groupID, SceneID: sceneID}},
	})
}

// TriggerCooldown disables a button for cooldownMillis milliseconds. The
// update is sent immediately. It panics unless interactivity is enabled.
func (s *Session) TriggerCooldown(controlID string, cooldownMillis int64) error {
	if s.state != InteractivityEnabled {
		panic("interactive: TriggerCooldown requires InteractivityEnabled, state is " + s.state.String())
	}
	c, err := s.control(controlID)
	if err != nil {
		return err
	}
	if cooldownMillis < 1000 {
		s.log.Warn("cooldown is under one second; it is in milliseconds, not seconds",
			"control", controlID, "cooldown_ms", cooldownMillis)
	}
	expires := s.now().UnixMilli() + cooldownMillis
	c.Button.CooldownExpiresAt = time.UnixMilli(expires)
	_, err = s.send(wire.MethodUpdateControls, wire.UpdateControlsPayload{
		SceneID:  c.SceneID,
		Controls: []wire.ControlUpdate{{ControlID: c.ID, Etag: c.Etag, Cooldown: &expires}},
	})
	return err
}

// Capture charges the sparks of the interaction identified by transactionID.
// Capturing the same transaction again is a no-op.
func (s *Session) Capture(transactionID string) error {
	id, err := uuid.Parse(transactionID)
	if err != nil {
		return fmt.Errorf("capture: invalid transaction id %q: %w", transactionID, err)
	}
	if s.captured.seen(id, s.now()) {
		s.log.Debug("transaction already captured", "transaction", transactionID)
		return nil
	}
	_, err = s.send(wire.MethodCapture, wire.CapturePayload{TransactionID: transactionID})
	return err
}

// SendMethod sends an arbitrary method and returns its message ID.
func (s *Session) SendMethod(method string, params any) (uint32, error) {
	return s.send(method, params)
}
