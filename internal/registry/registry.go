// Package registry owns the authoritative playback state of every room and
// the set of connected participants. All join, control and close reactions
// run under one exclusive section per registry, so every mutation and every
// broadcast derived from it is strictly serialized.
package registry

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/watchparty/server/internal/domain"
)

type participant struct {
	conn        domain.Connection
	displayName string
}

type room struct {
	id string
	// join order is an observable contract: presence lists names in the
	// order participants joined.
	participants []*participant
	state        domain.PlaybackState
}

type Registry struct {
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	rooms map[string]*room
}

func New(logger *slog.Logger) *Registry {
	return &Registry{
		logger: logger,
		now:    time.Now,
		rooms:  make(map[string]*room),
	}
}

// Join registers conn in the room with the given id, creating the room with
// the default paused state if it does not exist yet. The new connection
// receives a presence snapshot and a state snapshot, then the whole room
// (new connection included) receives the updated presence list.
func (r *Registry) Join(roomID string, conn domain.Connection, displayName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		rm = &room{
			id: roomID,
			state: domain.PlaybackState{
				Action:    domain.ActionPause,
				Position:  0,
				UpdatedAt: r.now(),
			},
		}
		r.rooms[roomID] = rm
		r.logger.Info("room created", "roomId", roomID)
	}

	p := &participant{conn: conn, displayName: displayName}
	rm.participants = append(rm.participants, p)

	r.send(conn, domain.NewPresenceMessage(rm.userNames()))
	r.send(conn, domain.NewStateMessage(rm.state))
	r.broadcast(rm, domain.NewPresenceMessage(rm.userNames()))

	conn.NotifyClose(func() {
		r.leave(roomID, p)
	})

	r.logger.Info("participant joined",
		"roomId", roomID,
		"userName", displayName,
		"participants", len(rm.participants),
	)
}

// HandleControl replaces the room's playback state and broadcasts the new
// state to every participant, the sender included. A control event for a
// room that does not exist is dropped: the control channel is
// fire-and-forget and may legitimately race the room's deletion.
func (r *Registry) HandleControl(roomID string, action domain.Action, position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return
	}

	rm.state = domain.PlaybackState{
		Action:    action,
		Position:  position,
		UpdatedAt: r.now(),
	}

	r.broadcast(rm, domain.NewStateMessage(rm.state))
}

// Stats reports the current number of rooms and connected participants.
func (r *Registry) Stats() (rooms, participants int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms = len(r.rooms)
	for _, rm := range r.rooms {
		participants += len(rm.participants)
	}
	return rooms, participants
}

// leave runs once per participant, from the connection's close notification.
// It is the only path that removes a participant.
func (r *Registry) leave(roomID string, p *participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, exists := r.rooms[roomID]
	if !exists {
		return
	}

	removed := false
	for i, existing := range rm.participants {
		if existing == p {
			rm.participants = append(rm.participants[:i], rm.participants[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		return
	}

	if len(rm.participants) == 0 {
		delete(r.rooms, roomID)
		r.logger.Info("room removed", "roomId", roomID)
		return
	}

	r.broadcast(rm, domain.NewPresenceMessage(rm.userNames()))
	r.logger.Info("participant left",
		"roomId", roomID,
		"userName", p.displayName,
		"participants", len(rm.participants),
	)
}

// broadcast delivers the same serialized message to every participant whose
// connection is currently open. Closed connections are skipped; their close
// notification reconciles presence.
func (r *Registry) broadcast(rm *room, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Warn("failed to marshal message", "roomId", rm.id, "error", err)
		return
	}

	for _, p := range rm.participants {
		if !p.conn.Open() {
			continue
		}
		if err := p.conn.Send(data); err != nil {
			r.logger.Debug("failed to send message", "roomId", rm.id, "error", err)
		}
	}
}

func (r *Registry) send(conn domain.Connection, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Warn("failed to marshal message", "error", err)
		return
	}

	if !conn.Open() {
		return
	}
	if err := conn.Send(data); err != nil {
		r.logger.Debug("failed to send message", "error", err)
	}
}

func (rm *room) userNames() []string {
	users := make([]string, 0, len(rm.participants))
	for _, p := range rm.participants {
		users = append(users, p.displayName)
	}
	return users
}
