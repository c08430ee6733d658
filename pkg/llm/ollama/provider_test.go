package ollama

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/llm"
)

func TestChat_SendsMessagesAndOptions(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"hello"},"done":true}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3", time.Second)
	out, err := p.Chat(t.Context(), []llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		{Role: "model", Content: "earlier"},
	}, llm.WithTemperature(0.1), llm.WithTopP(0.3), llm.WithTopK(10), llm.WithMaxTokens(64), llm.WithRepeatPenalty(1.1))

	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "llama3", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, llm.RoleAssistant, got.Messages[1].Role)
	require.NotNil(t, got.Options)
	assert.Equal(t, ollamaOptions{Temperature: 0.1, TopP: 0.3, TopK: 10, NumPredict: 64, RepeatPenalty: 1.1}, *got.Options)
}

func TestGenerate_ReadsResponseField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "which category?", req.Prompt)
		_, _ = w.Write([]byte(`{"response":"SUMMARIZATION","done":true}`))
	}))
	defer srv.Close()

	out, err := NewOllamaProvider(srv.URL, "llama3", time.Second).Generate(t.Context(), "which category?")
	require.NoError(t, err)
	assert.Equal(t, "SUMMARIZATION", out)
}

func TestProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   apperr.Kind
	}{
		{"server error", http.StatusInternalServerError, `oops`, apperr.KindTransport},
		{"not json", http.StatusOK, `<html>`, apperr.KindMalformedResponse},
		{"missing message", http.StatusOK, `{"done":true}`, apperr.KindMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaProvider(srv.URL, "llama3", time.Second).Chat(t.Context(), nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestChat_TimeoutIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "llama3", 20*time.Millisecond).Chat(t.Context(), nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTransport))
	assert.True(t, apperr.IsTimeout(err))
}

func TestModels_ListsTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"nomic-embed-text:latest"}]}`))
	}))
	defer srv.Close()

	models, err := NewOllamaProvider(srv.URL, "llama3", time.Second).Models(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3:latest", "nomic-embed-text:latest"}, models)
}
