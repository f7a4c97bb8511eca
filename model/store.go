package model

import (
	"github.com/NeboLoop/interactive-go-sdk/wire"
)

// Store is the flat, ID-keyed set of entity tables. It is owned by a single
// goroutine and does no locking.
//
// Scenes, groups and participants are updated in place so that pointers handed
// out earlier keep observing fresh data. Controls are replaced wholesale.
// Every list accessor returns entities in insertion order.
type Store struct {
	scenes   []*Scene
	sceneIdx map[string]*Scene

	groups   []*Group
	groupIdx map[string]*Group

	participants   []*Participant
	participantIdx map[string]*Participant

	controls   []*Control
	controlIdx map[string]int
}

// NewStore returns an empty store holding only the default group.
func NewStore() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops every table. The default group is recreated.
func (s *Store) Reset() {
	s.scenes = nil
	s.sceneIdx = make(map[string]*Scene)
	s.groups = nil
	s.groupIdx = make(map[string]*Group)
	s.participants = nil
	s.participantIdx = make(map[string]*Participant)
	s.controls = nil
	s.controlIdx = make(map[string]int)

	s.UpsertGroup(wire.Group{GroupID: wire.DefaultGroupID, SceneID: wire.DefaultGroupID})
}

// --------------------------------------------------------------------------
// Scenes
// --------------------------------------------------------------------------

// UpsertScene stores a scene and replaces every control it carries.
func (s *Store) UpsertScene(w wire.Scene) *Scene {
	sc, ok := s.sceneIdx[w.SceneID]
	if !ok {
		sc = &Scene{ID: w.SceneID}
		s.scenes = append(s.scenes, sc)
		s.sceneIdx[w.SceneID] = sc
	}
	sc.Etag = w.Etag
	if w.Meta != nil {
		sc.Meta = w.Meta
	}
	for _, c := range w.Controls {
		s.ReplaceControl(w.SceneID, c)
	}
	return sc
}

func (s *Store) Scene(id string) *Scene { return s.sceneIdx[id] }

func (s *Store) Scenes() []*Scene {
	return append([]*Scene(nil), s.scenes...)
}

// --------------------------------------------------------------------------
// Groups
// --------------------------------------------------------------------------

// UpsertGroup stores a group, updating an existing one in place.
func (s *Store) UpsertGroup(w wire.Group) *Group {
	g, ok := s.groupIdx[w.GroupID]
	if !ok {
		g = &Group{ID: w.GroupID}
		s.groups = append(s.groups, g)
		s.groupIdx[w.GroupID] = g
	}
	if w.SceneID != "" {
		g.SceneID = w.SceneID
	}
	g.Etag = w.Etag
	if w.Meta != nil {
		g.Meta = w.Meta
	}
	return g
}

// RemoveGroup deletes a group and moves its participants to reassignTo, or to
// the default group when reassignTo is empty. The default group is never
// removed.
func (s *Store) RemoveGroup(id, reassignTo string) []*Participant {
	if id == wire.DefaultGroupID {
		return nil
	}
	if _, ok := s.groupIdx[id]; !ok {
		return nil
	}
	if reassignTo == "" || s.groupIdx[reassignTo] == nil {
		reassignTo = wire.DefaultGroupID
	}
	delete(s.groupIdx, id)
	for i, g := range s.groups {
		if g.ID == id {
			s.groups = append(s.groups[:i], s.groups[i+1:]...)
			break
		}
	}
	var moved []*Participant
	for _, p := range s.participants {
		if p.GroupID == id {
			p.GroupID = reassignTo
			moved = append(moved, p)
		}
	}
	return moved
}

func (s *Store) Group(id string) *Group { return s.groupIdx[id] }

func (s *Store) Groups() []*Group {
	return append([]*Group(nil), s.groups...)
}

// --------------------------------------------------------------------------
// Participants
// --------------------------------------------------------------------------

// UpsertParticipant stores a participant, cloning the fields onto an existing
// record with the same session ID. It returns the stored record and the state
// it had before, which is ParticipantLeft for a new record.
func (s *Store) UpsertParticipant(w wire.Participant) (*Participant, ParticipantState) {
	fresh := participantFromWire(w)
	if fresh.GroupID == "" {
		fresh.GroupID = wire.DefaultGroupID
	}
	p, ok := s.participantIdx[w.SessionID]
	if !ok {
		p = &Participant{}
		*p = fresh
		s.participants = append(s.participants, p)
		s.participantIdx[w.SessionID] = p
		return p, ParticipantLeft
	}
	prev := p.State
	*p = fresh
	return p, prev
}

// MarkLeft flips a participant to Left, keeping the record for late reads.
// Unknown participants are recorded so the departure is still observable.
func (s *Store) MarkLeft(w wire.Participant) (*Participant, ParticipantState) {
	p, prev := s.UpsertParticipant(w)
	p.State = ParticipantLeft
	return p, prev
}

func (s *Store) Participant(sessionID string) *Participant {
	return s.participantIdx[sessionID]
}

// ParticipantByUserID resolves a user ID to the most recently joined record
// for that user. Prefer Participant: user IDs are not unique per session.
func (s *Store) ParticipantByUserID(userID uint64) *Participant {
	var found *Participant
	for _, p := range s.participants {
		if p.UserID == userID && (found == nil || newerPresence(p, found)) {
			found = p
		}
	}
	return found
}

// newerPresence prefers present participants, then later connections.
func newerPresence(p, q *Participant) bool {
	if (p.State == ParticipantLeft) != (q.State == ParticipantLeft) {
		return q.State == ParticipantLeft
	}
	return !p.ConnectedAt.Before(q.ConnectedAt)
}

func (s *Store) Participants() []*Participant {
	return append([]*Participant(nil), s.participants...)
}

// ParticipantsInGroup lists participants currently assigned to groupID.
func (s *Store) ParticipantsInGroup(groupID string) []*Participant {
	var out []*Participant
	for _, p := range s.participants {
		if p.GroupID == groupID && p.State != ParticipantLeft {
			out = append(out, p)
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Controls
// --------------------------------------------------------------------------

// ReplaceControl swaps in a new control object for w.ControlID, keeping its
// position in iteration order.
func (s *Store) ReplaceControl(sceneID string, w wire.Control) *Control {
	c := controlFromWire(sceneID, w)
	if i, ok := s.controlIdx[c.ID]; ok {
		s.controls[i] = c
		return c
	}
	s.controlIdx[c.ID] = len(s.controls)
	s.controls = append(s.controls, c)
	return c
}

// RemoveControl drops a control from the tables.
func (s *Store) RemoveControl(id string) bool {
	i, ok := s.controlIdx[id]
	if !ok {
		return false
	}
	s.controls = append(s.controls[:i], s.controls[i+1:]...)
	delete(s.controlIdx, id)
	for j := i; j < len(s.controls); j++ {
		s.controlIdx[s.controls[j].ID] = j
	}
	return true
}

func (s *Store) Control(id string) *Control {
	if i, ok := s.controlIdx[id]; ok {
		return s.controls[i]
	}
	return nil
}

func (s *Store) Controls() []*Control {
	return append([]*Control(nil), s.controls...)
}

// ControlsOfKind lists controls of one kind in insertion order.
func (s *Store) ControlsOfKind(k Kind) []*Control {
	var out []*Control
	for _, c := range s.controls {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// ControlsInScene lists the controls that belong to sceneID.
func (s *Store) ControlsInScene(sceneID string) []*Control {
	var out []*Control
	for _, c := range s.controls {
		if c.SceneID == sceneID {
			out = append(out, c)
		}
	}
	return out
}
