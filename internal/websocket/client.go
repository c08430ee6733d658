package websocket

import (
	"context"
	"encoding/json"
	"time"

	"ai-docqa-be/internal/dto"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 20 // questions may carry whole documents

	pendingQuestions = 8
)

// QuestionHandler answers one inbound question for a session.
type QuestionHandler func(ctx context.Context, sessionID string, msg dto.WsQuestionMessage) dto.WsOutboundMessage

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	SessionID string

	// Buffered channel of outbound messages.
	Send chan []byte

	handle    QuestionHandler
	questions chan dto.WsQuestionMessage
}

// readPump reads questions off the connection. Answering happens in answerLoop so that slow
// generation does not stall pong handling.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		close(c.questions)
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn("Client", "Unexpected close", map[string]interface{}{
					"session_id": c.SessionID,
					"error":      err.Error(),
				})
			}
			return
		}

		var msg dto.WsQuestionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(dto.WsOutboundMessage{Type: "error", SessionId: c.SessionID, Message: "Malformed message"})
			continue
		}

		select {
		case c.questions <- msg:
		case <-ctx.Done():
			return
		default:
			c.reply(dto.WsOutboundMessage{Type: "error", SessionId: c.SessionID, Message: "Too many pending questions"})
		}
	}
}

// answerLoop answers questions one at a time, in the order they arrived.
func (c *Client) answerLoop(ctx context.Context) {
	for msg := range c.questions {
		c.reply(c.handle(ctx, c.SessionID, msg))
	}
}

func (c *Client) reply(out dto.WsOutboundMessage) {
	data, err := json.Marshal(out)
	if err != nil {
		return
	}
	c.Hub.deliverTo(c, data)
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
