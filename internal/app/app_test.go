package app

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchparty/server/internal/controller"
	"github.com/watchparty/server/internal/registry"
	"github.com/watchparty/server/internal/service/playback"
)

type noopPlaybackService struct{}

func (noopPlaybackService) GetPlaybackInfo(context.Context, string) (playback.Info, error) {
	return playback.Info{}, nil
}

func (noopPlaybackService) SignManifestURL(rawURL string) (string, error) {
	return rawURL, nil
}

func newSyncServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.Default()
	origin, err := url.Parse("https://media.example")
	require.NoError(t, err)

	ctrl := controller.NewController(registry.New(logger), noopPlaybackService{}, controller.Config{
		PublicURL:    "http://localhost:8080",
		TrackerURLs:  []string{},
		ICEServers:   []any{},
		AllowOrigins: []string{"*"},
		MediaOrigin:  origin,
		MediaAPIKey:  "key",
	}, logger)

	srv := httptest.NewServer(ctrl.GetMux())
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func sendJoin(t *testing.T, conn *websocket.Conn, roomID, userName string) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":     "join",
		"roomId":   roomID,
		"userName": userName,
	}))
}

func assertPresence(t *testing.T, msg map[string]any, users ...any) {
	t.Helper()
	assert.Equal(t, "presence", msg["type"])
	assert.Equal(t, users, msg["users"])
}

func assertState(t *testing.T, msg map[string]any, action string, position float64) {
	t.Helper()
	assert.Equal(t, "state", msg["type"])
	assert.Equal(t, action, msg["action"])
	assert.Equal(t, position, msg["time"])
	assert.NotZero(t, msg["updatedAt"])
}

func TestWatchPartySession(t *testing.T) {
	srv := newSyncServer(t)

	alice := dialWS(t, srv)
	sendJoin(t, alice, "watch-1", "alice")

	assertPresence(t, readMessage(t, alice), "alice")
	assertState(t, readMessage(t, alice), "pause", 0.0)
	assertPresence(t, readMessage(t, alice), "alice")

	bob := dialWS(t, srv)
	sendJoin(t, bob, "watch-1", "bob")

	assertPresence(t, readMessage(t, bob), "alice", "bob")
	assertState(t, readMessage(t, bob), "pause", 0.0)
	assertPresence(t, readMessage(t, bob), "alice", "bob")

	assertPresence(t, readMessage(t, alice), "alice", "bob")

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":   "control",
		"action": "play",
		"time":   42.0,
	}))

	assertState(t, readMessage(t, alice), "play", 42.0)
	assertState(t, readMessage(t, bob), "play", 42.0)

	require.NoError(t, bob.Close())

	assertPresence(t, readMessage(t, alice), "alice")
}

func TestRoomsAreIsolated(t *testing.T) {
	srv := newSyncServer(t)

	alice := dialWS(t, srv)
	sendJoin(t, alice, "watch-1", "alice")
	for i := 0; i < 3; i++ {
		readMessage(t, alice)
	}

	carol := dialWS(t, srv)
	sendJoin(t, carol, "watch-2", "carol")
	for i := 0; i < 3; i++ {
		readMessage(t, carol)
	}

	require.NoError(t, carol.WriteJSON(map[string]any{
		"type":   "control",
		"action": "seek",
		"time":   10.0,
	}))

	assertState(t, readMessage(t, carol), "seek", 10.0)

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var msg map[string]any
	assert.Error(t, alice.ReadJSON(&msg), "must not receive frames from another room")
}

func TestControlBeforeJoinIsIgnored(t *testing.T) {
	srv := newSyncServer(t)

	conn := dialWS(t, srv)
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":   "control",
		"action": "play",
		"time":   5.0,
	}))

	sendJoin(t, conn, "watch-1", "dave")

	assertPresence(t, readMessage(t, conn), "dave")
	assertState(t, readMessage(t, conn), "pause", 0.0)
}

func TestLateJoinerReceivesCurrentState(t *testing.T) {
	srv := newSyncServer(t)

	alice := dialWS(t, srv)
	sendJoin(t, alice, "watch-1", "alice")
	for i := 0; i < 3; i++ {
		readMessage(t, alice)
	}

	require.NoError(t, alice.WriteJSON(map[string]any{
		"type":   "control",
		"action": "play",
		"time":   120.5,
	}))
	assertState(t, readMessage(t, alice), "play", 120.5)

	bob := dialWS(t, srv)
	sendJoin(t, bob, "watch-1", "bob")

	assertPresence(t, readMessage(t, bob), "alice", "bob")
	assertState(t, readMessage(t, bob), "play", 120.5)
}

func TestAppConfigValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			Port:            8080,
			JellyfinBaseURL: "https://media.example",
			JellyfinAPIKey:  "key",
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.JellyfinBaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.JellyfinBaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.JellyfinAPIKey = ""
	assert.Error(t, cfg.Validate())
}
