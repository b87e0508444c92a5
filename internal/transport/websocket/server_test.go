package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, r.URL.Query().Get("session_id"))
	}))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:]+"?session_id="+sessionID, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "s1")

	time.Sleep(100 * time.Millisecond)
	if n := hub.Subscribers("s1"); n != 1 {
		t.Fatalf("Expected 1 connection, got %d", n)
	}

	conn.Close()
	time.Sleep(100 * time.Millisecond)

	if n := hub.Subscribers("s1"); n != 0 {
		t.Fatalf("Connection should be unregistered, got %d", n)
	}
}

func TestHub_Broadcast(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, "s1")
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("s1", &Message{
		Type:    "reservation_state",
		Channel: "reservation#s1",
		Data:    map[string]interface{}{"state": "ready"},
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	var received Message
	if err := conn.ReadJSON(&received); err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	if received.Type != "reservation_state" {
		t.Errorf("Expected type 'reservation_state', got '%s'", received.Type)
	}
	if received.SessionID != "s1" {
		t.Errorf("Expected session s1, got %q", received.SessionID)
	}
}

func TestHub_MultipleConnections(t *testing.T) {
	hub, server := startHub(t)

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conns = append(conns, dial(t, server, "s1"))
	}
	time.Sleep(100 * time.Millisecond)

	if n := hub.Subscribers("s1"); n != 3 {
		t.Fatalf("Expected 3 connections, got %d", n)
	}

	hub.Broadcast("s1", &Message{Type: "broadcast"})

	var wg sync.WaitGroup
	for i, conn := range conns {
		wg.Add(1)
		go func(idx int, c *websocket.Conn) {
			defer wg.Done()
			c.SetReadDeadline(time.Now().Add(time.Second))
			var received Message
			if err := c.ReadJSON(&received); err != nil {
				t.Errorf("Connection %d failed to read message: %v", idx, err)
				return
			}
			if received.Type != "broadcast" {
				t.Errorf("Connection %d: expected type 'broadcast', got '%s'", idx, received.Type)
			}
		}(i, conn)
	}
	wg.Wait()
}

func TestHub_DifferentSessions(t *testing.T) {
	hub, server := startHub(t)
	conn1 := dial(t, server, "s1")
	conn2 := dial(t, server, "s2")
	time.Sleep(100 * time.Millisecond)

	hub.Broadcast("s1", &Message{Type: "private"})

	conn1.SetReadDeadline(time.Now().Add(time.Second))
	var received1 Message
	if err := conn1.ReadJSON(&received1); err != nil {
		t.Fatalf("Session 1 failed to read message: %v", err)
	}

	conn2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var received2 Message
	if err := conn2.ReadJSON(&received2); err == nil {
		t.Error("Session 2 should not receive messages of session 1")
	}
}

func TestHub_BroadcastChannelFull(t *testing.T) {
	hub := NewHub(nil)
	hub.broadcast = make(chan *Message, 1)

	hub.Broadcast("s1", &Message{Type: "fill"})
	hub.Broadcast("s1", &Message{Type: "dropped"})

	msg := <-hub.broadcast
	if msg.Type != "fill" {
		t.Fatalf("Expected first message to be kept, got %s", msg.Type)
	}
	select {
	case msg := <-hub.broadcast:
		t.Fatalf("Message %s should have been dropped", msg.Type)
	default:
	}
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleWebSocket(w, r, "s1")
	}))
	defer server.Close()

	conn := dial(t, server, "s1")
	time.Sleep(50 * time.Millisecond)

	cancel()
	time.Sleep(100 * time.Millisecond)

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("Expected connection to be closed after hub shutdown")
	}
}
