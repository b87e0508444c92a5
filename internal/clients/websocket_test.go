package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ws "ahlan-reserve/internal/transport/websocket"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, sessionID string) (*WebSocketClient, *websocket.Conn) {
	t.Helper()
	hub := ws.NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, r.URL.Query().Get("session_id"))
	}))
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:]+"?session_id="+sessionID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	time.Sleep(100 * time.Millisecond)
	return NewWebSocketClient(hub), conn
}

type received struct {
	SessionID string                 `json:"session_id"`
	Type      string                 `json:"type"`
	Channel   string                 `json:"channel"`
	Data      map[string]interface{} `json:"data"`
}

func read(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketClient_StateChanged(t *testing.T) {
	client, conn := connect(t, "abc")

	require.NoError(t, client.StateChanged(context.Background(), "abc", "contract_ready"))

	msg := read(t, conn)
	assert.Equal(t, MessageStateChanged, msg.Type)
	assert.Equal(t, "abc", msg.SessionID)
	assert.Equal(t, "reservation#abc", msg.Channel)
	assert.Equal(t, "contract_ready", msg.Data["state"])
}

func TestWebSocketClient_ArtifactLifecycle(t *testing.T) {
	client, conn := connect(t, "abc")
	ctx := context.Background()

	require.NoError(t, client.ArtifactProgress(ctx, "abc", "docx", "rendering"))
	msg := read(t, conn)
	assert.Equal(t, MessageArtifactProgress, msg.Type)
	assert.Equal(t, "docx", msg.Data["kind"])
	assert.Equal(t, "rendering", msg.Data["stage"])

	require.NoError(t, client.ArtifactReady(ctx, "abc", "docx", "/files/x_contract_7.docx", "contract_7.docx"))
	msg = read(t, conn)
	assert.Equal(t, MessageArtifactReady, msg.Type)
	assert.Equal(t, "/files/x_contract_7.docx", msg.Data["url"])
	assert.Equal(t, "contract_7.docx", msg.Data["filename"])

	require.NoError(t, client.ArtifactFailed(ctx, "abc", "pdf", "pdf rendering is disabled"))
	msg = read(t, conn)
	assert.Equal(t, MessageArtifactFailed, msg.Type)
	assert.Equal(t, "pdf rendering is disabled", msg.Data["message"])
}

func TestWebSocketClient_ProgressWithoutStage(t *testing.T) {
	client, conn := connect(t, "abc")

	require.NoError(t, client.ArtifactProgress(context.Background(), "abc", "xlsx", ""))

	msg := read(t, conn)
	_, ok := msg.Data["stage"]
	assert.False(t, ok)
}

func TestWebSocketClient_NilHub(t *testing.T) {
	client := NewWebSocketClient(nil)
	ctx := context.Background()

	assert.NoError(t, client.StateChanged(ctx, "abc", "ready"))
	assert.NoError(t, client.ArtifactReady(ctx, "abc", "docx", "u", "f"))

	var nilClient *WebSocketClient
	assert.NoError(t, nilClient.ArtifactFailed(ctx, "abc", "docx", "boom"))
}
