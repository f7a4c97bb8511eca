// Package wire defines the JSON payload types carried in the params and result
// fields of the interactive protocol. The frame package owns the envelope; these
// types describe what sits inside it.
package wire

import "github.com/goccy/go-json"

// Server-pushed methods.
const (
	MethodHello               = "hello"
	MethodOnParticipantJoin   = "onParticipantJoin"
	MethodOnParticipantLeave  = "onParticipantLeave"
	MethodOnParticipantUpdate = "onParticipantUpdate"
	MethodGiveInput           = "giveInput"
	MethodOnReady             = "onReady"
	MethodOnControlCreate     = "onControlCreate"
	MethodOnControlUpdate     = "onControlUpdate"
	MethodOnControlDelete     = "onControlDelete"
	MethodOnGroupCreate       = "onGroupCreate"
	MethodOnGroupUpdate       = "onGroupUpdate"
	MethodOnGroupDelete       = "onGroupDelete"
	MethodOnSceneCreate       = "onSceneCreate"
	MethodOnSceneDelete       = "onSceneDelete"
)

// Client-sent methods.
const (
	MethodReady              = "ready"
	MethodCapture            = "capture"
	MethodCreateGroups       = "createGroups"
	MethodUpdateGroups       = "updateGroups"
	MethodUpdateScenes       = "updateScenes"
	MethodUpdateParticipants = "updateParticipants"
	MethodUpdateControls     = "updateControls"
	MethodSetCompression     = "setCompression"
	MethodGetAllParticipants = "getAllParticipants"
	MethodGetGroups          = "getGroups"
	MethodGetScenes          = "getScenes"
)

// Control kinds.
const (
	KindButton   = "button"
	KindJoystick = "joystick"
	KindTextbox  = "textbox"
	KindLabel    = "label"
	KindScreen   = "screen"
)

// Input event names reported by giveInput.
const (
	EventMouseDown = "mousedown"
	EventMouseUp   = "mouseup"
	EventKeyDown   = "keydown"
	EventKeyUp     = "keyup"
	EventMove      = "move"
	EventChange    = "change"
	EventSubmit    = "submit"
)

// DefaultGroupID names the group every participant starts in.
const DefaultGroupID = "default"

// Participant is a viewer record as the service reports it.
type Participant struct {
	SessionID   string          `json:"sessionID"`
	UserID      uint64          `json:"userID"`
	Username    string          `json:"username"`
	Level       int             `json:"level"`
	LastInputAt int64           `json:"lastInputAt"`
	ConnectedAt int64           `json:"connectedAt"`
	Disabled    bool            `json:"disabled"`
	GroupID     string          `json:"groupID"`
	Etag        string          `json:"etag"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// Control is a scene control of any kind. Kind-specific fields are left zero
// for kinds that do not use them.
type Control struct {
	ControlID   string          `json:"controlID"`
	Kind        string          `json:"kind"`
	Disabled    bool            `json:"disabled"`
	Text        string          `json:"text,omitempty"`
	Tooltip     string          `json:"tooltip,omitempty"`
	Cost        int             `json:"cost,omitempty"`
	Progress    float64         `json:"progress,omitempty"`
	Cooldown    int64           `json:"cooldown,omitempty"`
	KeyCode     int             `json:"keyCode,omitempty"`
	SampleRate  int             `json:"sampleRate,omitempty"`
	Placeholder string          `json:"placeholder,omitempty"`
	Etag        string          `json:"etag"`
	Meta        json.RawMessage `json:"meta,omitempty"`
}

// Scene is a set of controls shown together.
type Scene struct {
	SceneID  string          `json:"sceneID"`
	Etag     string          `json:"etag"`
	Controls []Control       `json:"controls,omitempty"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

// Group is an audience segment bound to one scene.
type Group struct {
	GroupID string          `json:"groupID"`
	SceneID string          `json:"sceneID"`
	Etag    string          `json:"etag,omitempty"`
	Meta    json.RawMessage `json:"meta,omitempty"`
}

// --------------------------------------------------------------------------
// Inbound payloads
// --------------------------------------------------------------------------

// ParticipantsPayload is carried by onParticipantJoin/Leave/Update.
type ParticipantsPayload struct {
	Participants []Participant `json:"participants"`
}

// ParticipantsResult is the reply to getAllParticipants.
type ParticipantsResult struct {
	Participants []Participant `json:"participants"`
	Total        int           `json:"total"`
	HasMore      bool          `json:"hasMore"`
}

// GroupsPayload is carried by onGroupCreate/Update and the getGroups reply.
type GroupsPayload struct {
	Groups []Group `json:"groups"`
}

// GroupDeletePayload is carried by onGroupDelete.
type GroupDeletePayload struct {
	GroupID      string `json:"groupID"`
	ReassignToID string `json:"reassignGroupID,omitempty"`
}

// ScenesPayload is carried by onSceneCreate and the getScenes reply.
type ScenesPayload struct {
	Scenes []Scene `json:"scenes"`
}

// ControlsPayload is carried by onControlCreate/Update/Delete.
type ControlsPayload struct {
	SceneID  string    `json:"sceneID"`
	Controls []Control `json:"controls"`
}

// ReadyPayload is carried by onReady and sent with ready.
type ReadyPayload struct {
	IsReady bool `json:"isReady"`
}

// Input is the control interaction inside giveInput.
type Input struct {
	ControlID string  `json:"controlID"`
	Event     string  `json:"event"`
	Button    int     `json:"button,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Value     string  `json:"value,omitempty"`
}

// GiveInputPayload is carried by giveInput.
type GiveInputPayload struct {
	ParticipantID string `json:"participantID"`
	TransactionID string `json:"transactionID,omitempty"`
	Input         Input  `json:"input"`
}

// --------------------------------------------------------------------------
// Outbound payloads
// --------------------------------------------------------------------------

// CapturePayload is sent with capture.
type CapturePayload struct {
	TransactionID string `json:"transactionID"`
}

// ControlUpdate carries only the properties being changed.
type ControlUpdate struct {
	ControlID string   `json:"controlID"`
	Etag      string   `json:"etag,omitempty"`
	Disabled  *bool    `json:"disabled,omitempty"`
	Progress  *float64 `json:"progress,omitempty"`
	Text      *string  `json:"text,omitempty"`
	Tooltip   *string  `json:"tooltip,omitempty"`
	Cost      *int     `json:"cost,omitempty"`
	Cooldown  *int64   `json:"cooldown,omitempty"`
}

// UpdateControlsPayload is sent with updateControls, one per scene.
type UpdateControlsPayload struct {
	SceneID  string          `json:"sceneID"`
	Priority int             `json:"priority,omitempty"`
	Controls []ControlUpdate `json:"controls"`
}

// ParticipantUpdate carries only the participant properties being changed.
type ParticipantUpdate struct {
	SessionID string `json:"sessionID"`
	Etag      string `json:"etag,omitempty"`
	GroupID   string `json:"groupID,omitempty"`
	Disabled  *bool  `json:"disabled,omitempty"`
}

// UpdateParticipantsPayload is sent with updateParticipants.
type UpdateParticipantsPayload struct {
	Priority     int                 `json:"priority,omitempty"`
	Participants []ParticipantUpdate `json:"participants"`
}

// UpdateScenesPayload is sent with updateScenes.
type UpdateScenesPayload struct {
	Scenes []Scene `json:"scenes"`
}

// GetAllParticipantsParams is sent with getAllParticipants.
type GetAllParticipantsParams struct {
	From int64 `json:"from"`
}

// SetCompressionParams lists the schemes the client accepts, preferred first.
type SetCompressionParams struct {
	Scheme []string `json:"scheme"`
}

// SetCompressionResult is the scheme the server picked.
type SetCompressionResult struct {
	Scheme string `json:"scheme"`
}
