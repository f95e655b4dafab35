package domain

// Wire protocol: flat JSON text frames tagged by "type".

const (
	MessageTypeJoin     = "join"
	MessageTypeControl  = "control"
	MessageTypePresence = "presence"
	MessageTypeState    = "state"
)

// JoinMessage registers the sending connection in a room.
type JoinMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

// ControlMessage updates the playback state of the sender's room.
type ControlMessage struct {
	Type   string  `json:"type"`
	Action Action  `json:"action"`
	Time   float64 `json:"time"`
}

// PresenceMessage lists participant display names in join order.
type PresenceMessage struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// StateMessage is a playback state snapshot. UpdatedAt is epoch milliseconds.
type StateMessage struct {
	Type      string  `json:"type"`
	Action    Action  `json:"action"`
	Time      float64 `json:"time"`
	UpdatedAt int64   `json:"updatedAt"`
}

func NewPresenceMessage(users []string) *PresenceMessage {
	return &PresenceMessage{Type: MessageTypePresence, Users: users}
}

func NewStateMessage(state PlaybackState) *StateMessage {
	return &StateMessage{
		Type:      MessageTypeState,
		Action:    state.Action,
		Time:      state.Position,
		UpdatedAt: state.UpdatedAt.UnixMilli(),
	}
}
