package interactive

import (
	"github.com/NeboLoop/interactive-go-sdk/frame"
	"github.com/NeboLoop/interactive-go-sdk/model"
	"github.com/NeboLoop/interactive-go-sdk/wire"
)

// trackSetCurrentScene tags the updateGroups sent by SetCurrentScene.
const trackSetCurrentScene = "setCurrentScene"

// handleMethod routes a server push.
func (s *Session) handleMethod(msg frame.Message) error {
	switch msg.Method {
	case wire.MethodHello:
		s.onHello()

	case wire.MethodOnParticipantJoin, wire.MethodOnParticipantUpdate:
		var p wire.ParticipantsPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, w := range p.Participants {
			s.upsertParticipant(w)
		}

	case wire.MethodOnParticipantLeave:
		var p wire.ParticipantsPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, w := range p.Participants {
			part, prev := s.store.MarkLeft(w)
			s.input.Release(w.SessionID)
			s.participantChanged(part, prev)
		}

	case wire.MethodGiveInput:
		var p wire.GiveInputPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		s.onInput(p)

	case wire.MethodOnReady:
		var p wire.ReadyPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		s.onReady(p.IsReady)

	case wire.MethodOnControlCreate, wire.MethodOnControlUpdate:
		var p wire.ControlsPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, c := range p.Controls {
			s.store.ReplaceControl(p.SceneID, c)
		}

	case wire.MethodOnControlDelete:
		var p wire.ControlsPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, c := range p.Controls {
			s.store.RemoveControl(c.ControlID)
		}

	case wire.MethodOnGroupCreate, wire.MethodOnGroupUpdate:
		var p wire.GroupsPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, g := range p.Groups {
			s.store.UpsertGroup(g)
		}

	case wire.MethodOnGroupDelete:
		var p wire.GroupDeletePayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		moved := s.store.RemoveGroup(p.GroupID, p.ReassignToID)
		s.log.Info("group deleted", "group", p.GroupID, "moved", len(moved))

	case wire.MethodOnSceneCreate:
		var p wire.ScenesPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, sc := range p.Scenes {
			s.store.UpsertScene(sc)
		}

	case wire.MethodOnSceneDelete:
		// scenes live for the whole session
		s.log.Debug("ignoring scene delete")

	default:
		s.log.Debug("unhandled method", "method", msg.Method)
	}
	return nil
}

// onHello starts the initial fetch. Initialization completes once both the
// groups and the scenes have arrived.
func (s *Session) onHello() {
	s.backoff = s.cfg.ReconnectBackoff
	s.initPending = map[string]bool{
		wire.MethodGetGroups: true,
		wire.MethodGetScenes: true,
	}
	if len(s.cfg.Compression) > 0 {
		s.track(wire.MethodSetCompression, wire.MethodSetCompression,
			wire.SetCompressionParams{Scheme: s.cfg.Compression})
	}
	s.track(wire.MethodGetAllParticipants, wire.MethodGetAllParticipants, wire.GetAllParticipantsParams{})
	s.track(wire.MethodGetGroups, wire.MethodGetGroups, nil)
	s.track(wire.MethodGetScenes, wire.MethodGetScenes, nil)
}

func (s *Session) track(method, trackAs string, params any) {
	if err := s.sendTracked(method, trackAs, params); err != nil {
		s.raise(0, "send %s: %v", method, err)
	}
}

// completeInit marks one initial fetch as answered.
func (s *Session) completeInit(method string) {
	if !s.initPending[method] {
		return
	}
	delete(s.initPending, method)
	if len(s.initPending) > 0 {
		return
	}
	if !s.ready {
		s.ready = true
		s.setState(Initialized)
		if s.autoStart {
			s.StartInteractive()
		}
		return
	}
	s.log.Info("session restored after reconnect")
	switch {
	case s.wantReady:
		s.sendReady(true)
		s.setState(InteractivityPending)
	case s.state == ShortCodeRequired:
		s.setState(Initialized)
	}
}

func (s *Session) onReady(isReady bool) {
	if !s.ready {
		s.log.Debug("onReady before initialization", "ready", isReady)
		return
	}
	if isReady {
		s.setState(InteractivityEnabled)
	} else {
		s.setState(InteractivityDisabled)
	}
}

// handleReply routes a reply by the request it answers. Replies to requests
// that were not tracked only matter when they carry an error.
func (s *Session) handleReply(msg frame.Message) error {
	method, tracked := s.outstanding[msg.ID]
	delete(s.outstanding, msg.ID)
	defer s.completeInit(method)

	if msg.Err != nil {
		name := method
		if !tracked {
			name = "request"
		}
		s.raise(msg.Err.Code, "%s %d failed: %s", name, msg.ID, msg.Err.Error())
		return nil
	}
	if !tracked {
		return nil
	}

	switch method {
	case wire.MethodGetGroups, wire.MethodCreateGroups, trackSetCurrentScene:
		var p wire.GroupsPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, g := range p.Groups {
			s.store.UpsertGroup(g)
		}

	case wire.MethodGetScenes, wire.MethodUpdateScenes:
		var p wire.ScenesPayload
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, sc := range p.Scenes {
			s.store.UpsertScene(sc)
		}

	case wire.MethodGetAllParticipants:
		var p wire.ParticipantsResult
		if err := msg.Bind(&p); err != nil {
			return err
		}
		for _, w := range p.Participants {
			s.upsertParticipant(w)
		}
		if p.HasMore && len(p.Participants) > 0 {
			last := p.Participants[len(p.Participants)-1]
			s.track(wire.MethodGetAllParticipants, wire.MethodGetAllParticipants,
				wire.GetAllParticipantsParams{From: last.ConnectedAt})
		}

	case wire.MethodSetCompression:
		var p wire.SetCompressionResult
		if err := msg.Bind(&p); err != nil {
			return err
		}
		if !frame.Supported(p.Scheme) {
			s.log.Warn("server picked unsupported compression, staying uncompressed", "scheme", p.Scheme)
			return nil
		}
		s.compression = p.Scheme
		s.log.Info("compression negotiated", "scheme", p.Scheme)
	}
	return nil
}

func (s *Session) upsertParticipant(w wire.Participant) {
	p, prev := s.store.UpsertParticipant(w)
	s.participantChanged(p, prev)
}

func (s *Session) participantChanged(p *model.Participant, prev model.ParticipantState) {
	if p.State == prev {
		return
	}
	s.queue(ParticipantStateChangedEvent{eventTime: s.stamp(), Participant: p, Previous: prev, State: p.State})
}

// onInput feeds one giveInput into the reconciler and queues its event.
func (s *Session) onInput(p wire.GiveInputPayload) {
	in := p.Input
	sid := p.ParticipantID
	part := s.store.Participant(sid)
	if part != nil {
		part.LastInputAt = s.now()
	}
	kind, cost := model.KindGeneric, 0
	if c := s.store.Control(in.ControlID); c != nil {
		kind, cost = c.Kind, c.Button.Cost
	}

	switch in.Event {
	case wire.EventMouseDown, wire.EventKeyDown, wire.EventMouseUp, wire.EventKeyUp:
		pressed := in.Event == wire.EventMouseDown || in.Event == wire.EventKeyDown
		if kind == model.KindScreen {
			if pressed {
				s.input.MouseDown(sid, in.ControlID)
			} else {
				s.input.MouseUp(sid, in.ControlID)
			}
			s.queue(MouseButtonEvent{eventTime: s.stamp(), SessionID: sid, Participant: part,
				ControlID: in.ControlID, Button: in.Button, Pressed: pressed})
			return
		}
		if pressed {
			s.input.ButtonDown(sid, in.ControlID)
		} else {
			s.input.ButtonUp(sid, in.ControlID)
		}
		s.queue(ButtonEvent{eventTime: s.stamp(), SessionID: sid, Participant: part,
			ControlID: in.ControlID, Pressed: pressed, TransactionID: p.TransactionID, Cost: cost})

	case wire.EventMove:
		if kind == model.KindJoystick {
			s.input.JoystickMove(sid, in.ControlID, in.X, in.Y)
			s.queue(JoystickEvent{eventTime: s.stamp(), SessionID: sid, Participant: part,
				ControlID: in.ControlID, X: in.X, Y: in.Y})
			return
		}
		s.input.SetCoordinates(sid, in.ControlID, in.X, in.Y)
		s.queue(CoordinatesEvent{eventTime: s.stamp(), SessionID: sid, Participant: part,
			ControlID: in.ControlID, X: in.X, Y: in.Y})

	case wire.EventChange, wire.EventSubmit:
		s.input.SetText(sid, in.ControlID, in.Value)
		s.queue(TextInputEvent{eventTime: s.stamp(), SessionID: sid, Participant: part,
			ControlID: in.ControlID, Text: in.Value, Submitted: in.Event == wire.EventSubmit,
			TransactionID: p.TransactionID})

	default:
		s.log.Debug("unhandled input", "event", in.Event, "control", in.ControlID)
	}
}
