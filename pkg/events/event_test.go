package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionEvent(t *testing.T) {
	data := map[string]interface{}{"chunks": 3}
	e := NewSessionEvent(DocumentsIngested, "s1", data)

	assert.Equal(t, DocumentsIngested, e.EventType())
	assert.Equal(t, "s1", SessionID(e))
	assert.Equal(t, 3, e.Payload()["chunks"])
	assert.NotContains(t, data, "session_id")
	assert.False(t, e.Timestamp().IsZero())

	swept := NewSessionEvent(StoreSwept, "", nil)
	assert.Equal(t, "", SessionID(swept))
}

func TestMarshalKeepsType(t *testing.T) {
	raw, err := Marshal(NewSessionEvent(SessionDeleted, "abc", nil))
	require.NoError(t, err)

	back, err := Unmarshal(raw)
	require.NoError(t, err)
	assert.Equal(t, SessionDeleted, back.Type)
	assert.Equal(t, "abc", SessionID(back))
}
