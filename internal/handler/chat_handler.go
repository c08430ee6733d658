package handler

import (
	"context"
	"strconv"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/pkg/serverutils"
	"ai-docqa-be/internal/service"
	internalWS "ai-docqa-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ChatHandler serves the websocket chat front end. It answers through the same chatbot service as
// the REST API.
type ChatHandler struct {
	chatbot service.IChatbotService
	hub     *internalWS.Hub
	logger  logger.ILogger
	// ctx outlives individual requests and is cancelled at shutdown
	ctx context.Context
}

func NewChatHandler(ctx context.Context, chatbot service.IChatbotService, hub *internalWS.Hub, log logger.ILogger) *ChatHandler {
	return &ChatHandler{
		chatbot: chatbot,
		hub:     hub,
		logger:  log,
		ctx:     ctx,
	}
}

func (h *ChatHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/ws/chat", h.ServeWs)
}

// ServeWs upgrades GET /ws/chat?session_id=. Without a session id a new one is generated and
// announced as the first frame.
func (h *ChatHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := c.Query("session_id")
	greet := sessionID == ""
	if greet {
		sessionID = uuid.New().String()
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ChatHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.ctx, h.hub, conn, sessionID, greet, h.Answer)
		h.logger.Info("ChatHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
	})(c)
}

// Answer turns one inbound frame into the reply frame.
func (h *ChatHandler) Answer(ctx context.Context, sessionID string, msg dto.WsQuestionMessage) dto.WsOutboundMessage {
	var documents []service.SourceDocument
	for i, text := range msg.Documents {
		documents = append(documents, service.SourceDocument{Source: "text#" + strconv.Itoa(i+1), Text: text})
	}
	for _, link := range msg.Urls {
		documents = append(documents, service.SourceDocument{Source: link, URL: link})
	}

	result, err := h.chatbot.Answer(ctx, sessionID, msg.Question, documents)
	if err != nil {
		_, message := serverutils.StatusFor(err)
		h.logger.Warn("ChatHandler", "Question failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return dto.WsOutboundMessage{Type: "error", SessionId: sessionID, Message: message}
	}

	return dto.WsOutboundMessage{
		Type:         "answer",
		SessionId:    result.SessionId,
		Answer:       result.Answer,
		Conversation: service.ToConversationTurns(result.Conversation),
	}
}
