package clients

import (
	"context"

	ws "ahlan-reserve/internal/transport/websocket"
)

const (
	MessageStateChanged     = "reservation_state"
	MessageArtifactProgress = "artifact_progress"
	MessageArtifactReady    = "artifact_ready"
	MessageArtifactFailed   = "artifact_failed"
)

// WebSocketClient pushes reservation events to the dashboards watching a session.
type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

func channel(sessionID string) string {
	return "reservation#" + sessionID
}

func (c *WebSocketClient) send(sessionID, typ string, data map[string]interface{}) error {
	if c == nil || c.hub == nil {
		return nil
	}
	c.hub.Broadcast(sessionID, &ws.Message{
		Type:    typ,
		Channel: channel(sessionID),
		Data:    data,
	})
	return nil
}

func (c *WebSocketClient) StateChanged(ctx context.Context, sessionID, state string) error {
	return c.send(sessionID, MessageStateChanged, map[string]interface{}{
		"state": state,
	})
}

func (c *WebSocketClient) ArtifactProgress(ctx context.Context, sessionID, kind, stage string) error {
	data := map[string]interface{}{
		"kind": kind,
	}
	if stage != "" {
		data["stage"] = stage
	}
	return c.send(sessionID, MessageArtifactProgress, data)
}

func (c *WebSocketClient) ArtifactReady(ctx context.Context, sessionID, kind, url, filename string) error {
	return c.send(sessionID, MessageArtifactReady, map[string]interface{}{
		"kind":     kind,
		"url":      url,
		"filename": filename,
	})
}

func (c *WebSocketClient) ArtifactFailed(ctx context.Context, sessionID, kind, errMsg string) error {
	return c.send(sessionID, MessageArtifactFailed, map[string]interface{}{
		"kind":    kind,
		"message": errMsg,
	})
}
