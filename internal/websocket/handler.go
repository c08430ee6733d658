package websocket

import (
	"context"
	"encoding/json"

	"ai-docqa-be/internal/dto"

	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a connection to the session and blocks until it closes. When greet is set the
// session id is sent first, for clients that connected without one.
func ServeWs(ctx context.Context, hub *Hub, conn *websocket.Conn, sessionID string, greet bool, handle QuestionHandler) {
	client := &Client{
		Hub:       hub,
		Conn:      conn,
		SessionID: sessionID,
		Send:      make(chan []byte, 256),
		handle:    handle,
		questions: make(chan dto.WsQuestionMessage, pendingQuestions),
	}
	if !hub.Register(client) {
		conn.Close()
		return
	}

	if greet {
		data, _ := json.Marshal(dto.WsOutboundMessage{Type: "session", SessionId: sessionID})
		client.Send <- data
	}

	go client.writePump()
	go client.answerLoop(ctx)
	client.readPump(ctx)
}
