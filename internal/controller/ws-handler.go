package controller

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/watchparty/server/internal/domain"
	"github.com/watchparty/server/internal/transport/ws"
	"github.com/watchparty/server/pkg/ctxlogger"
	"github.com/watchparty/server/pkg/wsrouter"
)

// serveWS is the session edge: it upgrades the connection, decodes inbound
// frames into typed events and routes them into the registry. It owns no
// playback semantics; the only per-connection state it keeps is the room the
// connection most recently joined.
func (c controller) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	wsConn := ws.NewConn(conn, c.logger)
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", wsConn.ID()))

	var joinedRoomID string

	mux := wsrouter.New()
	mux.Handle(domain.MessageTypeJoin, func(ctx context.Context, data json.RawMessage) {
		var msg domain.JoinMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WarnContext(ctx, "dropping malformed join message", "error", err)
			return
		}
		if msg.RoomID == "" {
			c.logger.WarnContext(ctx, "dropping join message without room id")
			return
		}

		joinedRoomID = msg.RoomID
		c.registry.Join(msg.RoomID, wsConn, msg.UserName)
	})
	mux.Handle(domain.MessageTypeControl, func(ctx context.Context, data json.RawMessage) {
		if joinedRoomID == "" {
			c.logger.WarnContext(ctx, "dropping control message before join")
			return
		}

		var msg domain.ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.WarnContext(ctx, "dropping malformed control message", "error", err)
			return
		}

		c.registry.HandleControl(joinedRoomID, msg.Action, msg.Time)
	})

	wsConn.Serve(ctx, func(ctx context.Context, data []byte) {
		// malformed or unknown frames never take down the connection
		if err := mux.Dispatch(ctx, data); err != nil {
			c.logger.WarnContext(ctx, "dropping invalid message", "error", err)
		}
	})
}
