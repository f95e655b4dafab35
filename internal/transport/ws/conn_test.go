package ws

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialTestConn runs a server that upgrades the first request and serves the
// resulting Conn with handle, returning the server-side Conn and the client.
func dialTestConn(t *testing.T, handle func(ctx context.Context, data []byte)) (*Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wsc, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)

		conn := NewConn(wsc, slog.Default())
		connCh <- conn
		conn.Serve(r.Context(), handle)
	}))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case conn := <-connCh:
		return conn, client
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server connection")
		return nil, nil
	}
}

func TestSendDeliversFrameToClient(t *testing.T) {
	conn, client := dialTestConn(t, func(context.Context, []byte) {})

	require.NoError(t, conn.Send([]byte(`{"type":"presence"}`)))

	client.SetReadDeadline(time.Now().Add(time.Second))
	messageType, data, err := client.ReadMessage()
	require.NoError(t, err)

	assert.Equal(t, websocket.TextMessage, messageType)
	assert.Equal(t, `{"type":"presence"}`, string(data))
}

func TestInboundFramesReachHandler(t *testing.T) {
	received := make(chan []byte, 1)
	_, client := dialTestConn(t, func(_ context.Context, data []byte) {
		received <- data
	})

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(`{"type":"join"}`)))

	select {
	case data := <-received:
		assert.Equal(t, `{"type":"join"}`, string(data))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound frame")
	}
}

func TestClientDisconnectFiresCloseNotifications(t *testing.T) {
	conn, client := dialTestConn(t, func(context.Context, []byte) {})

	notified := make(chan struct{})
	conn.NotifyClose(func() { close(notified) })

	require.NoError(t, client.Close())

	select {
	case <-notified:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for close notification")
	}

	assert.False(t, conn.Open())
	assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnClosed)
}

func TestNotifyCloseAfterCloseRunsImmediately(t *testing.T) {
	conn, client := dialTestConn(t, func(context.Context, []byte) {})

	closed := make(chan struct{})
	conn.NotifyClose(func() { close(closed) })

	require.NoError(t, client.Close())
	<-closed

	late := make(chan struct{})
	conn.NotifyClose(func() { close(late) })

	select {
	case <-late:
	case <-time.After(time.Second):
		t.Fatal("late close notification never fired")
	}
}

func TestConnIDsAreUnique(t *testing.T) {
	a, _ := dialTestConn(t, func(context.Context, []byte) {})
	b, _ := dialTestConn(t, func(context.Context, []byte) {})

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
}
