package dto

// AskRequest is the body of POST /ask. Documents are only ingested into a session that has none yet.
type AskRequest struct {
	Question    string   `json:"question"`
	SessionId   string   `json:"session_id,omitempty"`
	PdfContents []string `json:"pdf_contents,omitempty"` // base64 encoded PDF files
	Documents   []string `json:"documents,omitempty"`    // plain text documents
	Urls        []string `json:"urls,omitempty"`
}

type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AskResponse struct {
	SessionId    string             `json:"session_id"`
	Answer       string             `json:"answer"`
	Category     string             `json:"category,omitempty"`
	Conversation []ConversationTurn `json:"conversation"`
}

type SessionRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type ClearDocumentsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type DeleteSessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Websocket frames

type WsQuestionMessage struct {
	Question  string   `json:"question"`
	Documents []string `json:"documents,omitempty"`
	Urls      []string `json:"urls,omitempty"`
}

type WsOutboundMessage struct {
	Type         string             `json:"type"` // "session" | "answer" | "error" | "event"
	SessionId    string             `json:"session_id,omitempty"`
	Answer       string             `json:"answer,omitempty"`
	Conversation []ConversationTurn `json:"conversation,omitempty"`
	Message      string             `json:"message,omitempty"`
	Event        interface{}        `json:"event,omitempty"`
}
