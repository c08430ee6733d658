package events

import "time"

const (
	SessionCreated    = "SESSION_CREATED"
	DocumentsIngested = "DOCUMENTS_INGESTED"
	DocumentsCleared  = "DOCUMENTS_CLEARED"
	SessionDeleted    = "SESSION_DELETED"
	StoreSwept        = "STORE_SWEPT"
	AnswerGenerated   = "ANSWER_GENERATED"
)

// NewSessionEvent builds a session lifecycle event. Payloads carry ids and counters, never document text.
func NewSessionEvent(eventType, sessionId string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	if sessionId != "" {
		payload["session_id"] = sessionId
	}
	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now().UTC(),
	}
}

// SessionID returns the session an event belongs to, or "" for store-wide events.
func SessionID(e Event) string {
	if id, ok := e.Payload()["session_id"].(string); ok {
		return id
	}
	return ""
}
