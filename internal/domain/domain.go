package domain

import "time"

// Action is the playback instruction carried by control events.
type Action string

const (
	ActionPlay  Action = "play"
	ActionPause Action = "pause"
	ActionSeek  Action = "seek"
)

// PlaybackState is the authoritative action/position/timestamp triple of a
// room. It is replaced as a whole on every control event, never patched.
type PlaybackState struct {
	Action    Action
	Position  float64
	UpdatedAt time.Time
}

// Connection is one client's transport session. Sends are fire-and-forget:
// a failed or skipped delivery is reconciled by the next broadcast or by the
// close notification, never retried.
type Connection interface {
	ID() string
	// Send enqueues one text frame for delivery.
	Send(data []byte) error
	// Open reports whether the connection is still writable.
	Open() bool
	// NotifyClose registers fn to run once the connection closes. A
	// subscription on an already-closed connection fires immediately from a
	// separate goroutine.
	NotifyClose(fn func())
}
