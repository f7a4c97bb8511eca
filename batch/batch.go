// Package batch coalesces outbound property mutations so that each poll sends
// at most one updateControls per scene, one updateGroups and one
// updateParticipants, whatever the caller did in between.
package batch

import "github.com/NeboLoop/interactive-go-sdk/wire"

type controlKey struct {
	scene   string
	control string
}

// Batcher accumulates pending updates. Setting a property that is already
// pending overwrites the earlier value. It is owned by the polling goroutine
// and does no locking.
type Batcher struct {
	controls     map[controlKey]*wire.ControlUpdate
	controlOrder []controlKey

	groups     map[string]*wire.Group
	groupOrder []string

	participants     map[string]*wire.ParticipantUpdate
	participantOrder []string
}

// New returns an empty batcher.
func New() *Batcher {
	b := &Batcher{}
	b.Clear()
	return b
}

// Clear drops everything pending.
func (b *Batcher) Clear() {
	b.controls = make(map[controlKey]*wire.ControlUpdate)
	b.controlOrder = nil
	b.groups = make(map[string]*wire.Group)
	b.groupOrder = nil
	b.participants = make(map[string]*wire.ParticipantUpdate)
	b.participantOrder = nil
}

// Len reports how many entities have pending changes.
func (b *Batcher) Len() int {
	return len(b.controlOrder) + len(b.groupOrder) + len(b.participantOrder)
}

func (b *Batcher) control(sceneID, controlID, etag string) *wire.ControlUpdate {
	k := controlKey{sceneID, controlID}
	u, ok := b.controls[k]
	if !ok {
		u = &wire.ControlUpdate{ControlID: controlID}
		b.controls[k] = u
		b.controlOrder = append(b.controlOrder, k)
	}
	if etag != "" {
		u.Etag = etag
	}
	return u
}

func (b *Batcher) SetDisabled(sceneID, controlID, etag string, v bool) {
	b.control(sceneID, controlID, etag).Disabled = &v
}

func (b *Batcher) SetProgress(sceneID, controlID, etag string, v float64) {
	b.control(sceneID, controlID, etag).Progress = &v
}

func (b *Batcher) SetText(sceneID, controlID, etag, v string) {
	b.control(sceneID, controlID, etag).Text = &v
}

func (b *Batcher) SetTooltip(sceneID, controlID, etag, v string) {
	b.control(sceneID, controlID, etag).Tooltip = &v
}

func (b *Batcher) SetCost(sceneID, controlID, etag string, v int) {
	b.control(sceneID, controlID, etag).Cost = &v
}

// SetGroupScene queues a move of groupID onto sceneID.
func (b *Batcher) SetGroupScene(groupID, sceneID, etag string) {
	g, ok := b.groups[groupID]
	if !ok {
		g = &wire.Group{GroupID: groupID}
		b.groups[groupID] = g
		b.groupOrder = append(b.groupOrder, groupID)
	}
	g.SceneID = sceneID
	if etag != "" {
		g.Etag = etag
	}
}

// SetParticipantGroup queues a move of a participant into groupID.
func (b *Batcher) SetParticipantGroup(sessionID, groupID, etag string) {
	p := b.participant(sessionID, etag)
	p.GroupID = groupID
}

// SetParticipantDisabled queues enabling or disabling a participant's input.
func (b *Batcher) SetParticipantDisabled(sessionID, etag string, v bool) {
	b.participant(sessionID, etag).Disabled = &v
}

func (b *Batcher) participant(sessionID, etag string) *wire.ParticipantUpdate {
	p, ok := b.participants[sessionID]
	if !ok {
		p = &wire.ParticipantUpdate{SessionID: sessionID}
		b.participants[sessionID] = p
		b.participantOrder = append(b.participantOrder, sessionID)
	}
	if etag != "" {
		p.Etag = etag
	}
	return p
}

// Call is one outbound method produced by Flush.
type Call struct {
	Method string
	Params any
}

// Flush returns the pending updates as wire calls and empties the batcher.
// Scenes keep the order in which they were first touched, as do the controls
// inside each scene.
func (b *Batcher) Flush() []Call {
	if b.Len() == 0 {
		return nil
	}
	var calls []Call

	var sceneOrder []string
	byScene := make(map[string]*wire.UpdateControlsPayload)
	for _, k := range b.controlOrder {
		p, ok := byScene[k.scene]
		if !ok {
			p = &wire.UpdateControlsPayload{SceneID: k.scene}
			byScene[k.scene] = p
			sceneOrder = append(sceneOrder, k.scene)
		}
		p.Controls = append(p.Controls, *b.controls[k])
	}
	for _, id := range sceneOrder {
		calls = append(calls, Call{Method: wire.MethodUpdateControls, Params: *byScene[id]})
	}

	if len(b.groupOrder) > 0 {
		p := wire.GroupsPayload{Groups: make([]wire.Group, 0, len(b.groupOrder))}
		for _, id := range b.groupOrder {
			p.Groups = append(p.Groups, *b.groups[id])
		}
		calls = append(calls, Call{Method: wire.MethodUpdateGroups, Params: p})
	}

	if len(b.participantOrder) > 0 {
		p := wire.UpdateParticipantsPayload{Participants: make([]wire.ParticipantUpdate, 0, len(b.participantOrder))}
		for _, id := range b.participantOrder {
			p.Participants = append(p.Participants, *b.participants[id])
		}
		calls = append(calls, Call{Method: wire.MethodUpdateParticipants, Params: p})
	}

	b.Clear()
	return calls
}
