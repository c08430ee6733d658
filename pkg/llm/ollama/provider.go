package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, timeout time.Duration) *OllamaProvider {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaProvider{
		BaseURL:   baseURL,
		ModelName: modelName,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
}

type ollamaChatResponse struct {
	Model   string         `json:"model"`
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
}

type ollamaGenerateResponse struct {
	Model    string  `json:"model"`
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Temperature: 0.7}, opts...)

	ollamaMessages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = llm.RoleAssistant
		}
		ollamaMessages[i] = ollamaMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	reqPayload := ollamaChatRequest{
		Model:    o.model(options),
		Messages: ollamaMessages,
		Stream:   false,
		Options:  toOllamaOptions(options),
	}

	var resp ollamaChatResponse
	if err := o.post(ctx, "/api/chat", "ollama chat", reqPayload, &resp); err != nil {
		return "", err
	}
	if resp.Message == nil {
		return "", apperr.Malformed("ollama chat", "response has no message field", nil)
	}
	return resp.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{Temperature: 0.7}, opts...)

	reqPayload := ollamaGenerateRequest{
		Model:   o.model(options),
		Prompt:  prompt,
		Stream:  false,
		Options: toOllamaOptions(options),
	}

	var resp ollamaGenerateResponse
	if err := o.post(ctx, "/api/generate", "ollama generate", reqPayload, &resp); err != nil {
		return "", err
	}
	if resp.Response == nil {
		return "", apperr.Malformed("ollama generate", "response has no response field", nil)
	}
	return *resp.Response, nil
}

// Models lists the models installed on the server.
func (o *OllamaProvider) Models(ctx context.Context) ([]string, error) {
	var resp ollamaTagsResponse
	if err := o.do(ctx, http.MethodGet, "/api/tags", "ollama tags", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *OllamaProvider) model(options llm.Options) string {
	if options.Model != "" {
		return options.Model
	}
	return o.ModelName
}

func toOllamaOptions(options llm.Options) *ollamaOptions {
	return &ollamaOptions{
		Temperature:   options.Temperature,
		TopP:          options.TopP,
		TopK:          options.TopK,
		NumPredict:    options.MaxTokens,
		RepeatPenalty: options.RepeatPenalty,
	}
}

func (o *OllamaProvider) post(ctx context.Context, path, op string, payload interface{}, out interface{}) error {
	return o.do(ctx, http.MethodPost, path, op, payload, out)
}

func (o *OllamaProvider) do(ctx context.Context, method, path, op string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return apperr.Transport(op, fmt.Errorf("ollama request failed: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Transport(op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return apperr.Transport(op, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes)))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return apperr.Malformed(op, "unparseable response", err)
	}
	return nil
}
