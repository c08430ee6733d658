package service

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/llm/ollama"
	"ai-docqa-be/pkg/rag/collection"
	"ai-docqa-be/pkg/rag/executor"
	"ai-docqa-be/pkg/rag/intent"
	"ai-docqa-be/pkg/rag/prompt"
	"ai-docqa-be/pkg/rag/response"
	"ai-docqa-be/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubOllama embeds by hashing words into buckets and answers chat by echoing the documents
// section of the prompt.
type stubOllama struct {
	mu    sync.Mutex
	calls map[string]int
}

func (s *stubOllama) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *stubOllama) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *stubOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[string]int{}
	}
	s.calls[r.URL.Path]++
	s.mu.Unlock()

	switch r.URL.Path {
	case "/api/embeddings":
		var req struct {
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"embedding": bagOfWords(req.Prompt)})

	case "/api/generate":
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": "QUESTION FROM DOCUMENTS"})

	case "/api/chat":
		var req struct {
			Messages []llm.Message `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		last := req.Messages[len(req.Messages)-1].Content
		reply := "I can only chat."
		if start := strings.LastIndex(last, "<documents>"); start >= 0 {
			end := strings.LastIndex(last, "</documents>")
			reply = "According to the documents: " + strings.TrimSpace(last[start+len("<documents>"):end])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": reply},
		})

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func bagOfWords(text string) []float64 {
	vec := make([]float64, 32)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%32]++
	}
	vec[31] += 0.01 // never all zero
	return vec
}

func bagOfWordsFloat32(text string) []float32 {
	vec := bagOfWords(text)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// emptyQueryRepo stores normally but never finds anything.
type emptyQueryRepo struct {
	*memory.CollectionRepository
}

func (r emptyQueryRepo) Query(ctx context.Context, name string, vector []float32, n int) ([]*entity.ChunkMatch, error) {
	return nil, nil
}

type stubPDF struct{}

func (stubPDF) Extract(ctx context.Context, data []byte) (string, error) {
	if strings.HasPrefix(string(data), "%PDF-") {
		return strings.TrimPrefix(string(data), "%PDF-"), nil
	}
	return "", apperr.Input("The uploaded file is not a PDF")
}

type stubWeb struct{}

func (stubWeb) Extract(ctx context.Context, link string) (string, error) {
	return "Page at " + link + " says the office opens at nine.", nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	svc       IChatbotService
	backend   *stubOllama
	repo      contract.CollectionRepository
	history   contract.ConversationRepository
	manager   *collection.Manager
	publisher *recordingPublisher
}

func newFixture(t *testing.T, repo contract.CollectionRepository) *fixture {
	t.Helper()
	backend := &stubOllama{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	log := logger.NewNopLogger()
	if repo == nil {
		repo = memory.NewCollectionRepository()
	}

	embedder := embedding.NewClient(
		embedding.NewOllamaProvider(srv.URL, "test-embed", time.Second),
		retry.Fixed(2, time.Millisecond), 32, log, nil,
	)
	generator := response.NewGenerator(
		ollama.NewOllamaProvider(srv.URL, "test-llm", time.Second),
		response.GeneratorConfig{Policy: retry.Fixed(2, time.Millisecond)},
		log, nil,
	)
	resolver := intent.NewResolver(generator, intent.ModeDocuments, 0, log, nil)
	exec := executor.NewPipelineExecutor(resolver, prompt.NewBuilder(0, 0), generator, 4, log)
	manager := collection.NewManager(repo, embedder, time.Millisecond, log, nil)
	history := memory.NewConversationRepository()
	publisher := &recordingPublisher{}

	svc := NewChatbotService(manager, exec, history, stubPDF{}, stubWeb{}, publisher,
		ChatbotConfig{ChunkSize: 200, ChunkOverlap: 20}, log)

	return &fixture{
		svc:       svc,
		backend:   backend,
		repo:      repo,
		history:   history,
		manager:   manager,
		publisher: publisher,
	}
}

func TestAnswer_NoDocumentsAsksForUpload(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Answer(t.Context(), "s1", "What is the fee?", nil)
	require.NoError(t, err)

	assert.Equal(t, response.MessageUploadDocuments, res.Answer)
	assert.Zero(t, f.backend.total(), "no backend call may be made")
	require.Len(t, res.Conversation, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "What is the fee?"}, res.Conversation[0])
	assert.Equal(t, llm.RoleAssistant, res.Conversation[1].Role)
}

func TestAnswer_GroundsAnswerInUploadedDocument(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Answer(t.Context(), "s1", "What is the fee?", []SourceDocument{
		{Source: "text#1", Text: "The fee is $10.90."},
	})
	require.NoError(t, err)

	assert.Contains(t, res.Answer, "$10.90")
	assert.NotContains(t, strings.ToLower(res.Answer), "cannot find")
	assert.Equal(t, "QUESTION FROM DOCUMENTS", res.Category)
	assert.Equal(t, 1, f.backend.count("/api/chat"))

	matches, err := f.repo.Query(t.Context(), "s1", bagOfWordsFloat32("fee"), 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "session_s1_doc1_chunk1", matches[0].Id)
	assert.Equal(t, "text#1", matches[0].Metadata["source"])

	count, err := f.repo.Count(t.Context(), "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, []string{events.SessionCreated, events.DocumentsIngested, events.AnswerGenerated}, f.publisher.types())
}

func TestAnswer_NoMatchesRefusesWithoutGenerating(t *testing.T) {
	f := newFixture(t, emptyQueryRepo{memory.NewCollectionRepository()})

	res, err := f.svc.Answer(t.Context(), "s1", "Who painted the ceiling?", []SourceDocument{
		{Source: "text#1", Text: "The fee is $10.90."},
	})
	require.NoError(t, err)

	assert.Equal(t, response.MessageNoRelevantInfo, res.Answer)
	assert.Zero(t, f.backend.count("/api/chat"))
	assert.Zero(t, f.backend.count("/api/generate"))
}

func TestAnswer_BlankQuestion(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Answer(t.Context(), "s1", "   ", nil)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInput))

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, response.MessageEmptyQuestion, appErr.UserMessage())
}

func TestAnswer_GeneratesSessionId(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Answer(t.Context(), "", "hello", nil)
	require.NoError(t, err)
	assert.Len(t, res.SessionId, 36)

	stored, err := f.history.Get(t.Context(), res.SessionId)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestAnswer_AllDocumentsFail(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Answer(t.Context(), "s1", "What is the fee?", []SourceDocument{
		{Source: "pdf#1", PDF: []byte("not a pdf")},
		{Source: "pdf#2"},
	})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperr.KindInput, appErr.Kind)
	assert.Equal(t, response.MessageNoDocsProcessed, appErr.UserMessage())
}

func TestAnswer_SkipsFailedDocuments(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Answer(t.Context(), "s1", "When does the office open?", []SourceDocument{
		{Source: "pdf#1", PDF: []byte("garbage")},
		{Source: "https://example.com/hours", URL: "https://example.com/hours"},
	})
	require.NoError(t, err)
	assert.Contains(t, res.Answer, "nine")

	count, err := f.repo.Count(t.Context(), "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestAnswer_PopulatedSessionIgnoresNewUploads(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Answer(t.Context(), "s1", "What is the fee?", []SourceDocument{{Source: "text#1", Text: "The fee is $10.90."}})
	require.NoError(t, err)
	res, err := f.svc.Answer(t.Context(), "s1", "And the deposit?", []SourceDocument{{Source: "text#1", Text: "The deposit is $50.00."}})
	require.NoError(t, err)

	count, err := f.repo.Count(t.Context(), "s1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Len(t, res.Conversation, 4)
}

func TestAsk_DecodesPdfContents(t *testing.T) {
	f := newFixture(t, nil)

	res, err := f.svc.Ask(t.Context(), &dto.AskRequest{
		Question:    "What is the fee?",
		SessionId:   "s1",
		PdfContents: []string{"JVBERi1UaGUgZmVlIGlzICQxMC45MC4="}, // "%PDF-The fee is $10.90."
	})
	require.NoError(t, err)

	assert.Equal(t, "s1", res.SessionId)
	assert.Contains(t, res.Answer, "$10.90")
	require.Len(t, res.Conversation, 2)
	assert.Equal(t, "user", res.Conversation[0].Role)
}

func TestClearDocuments_KeepsConversation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	none := f.svc.ClearDocuments(ctx, "s1")
	assert.True(t, none.Success)
	assert.Equal(t, "No documents found for session s1", none.Message)

	_, err := f.svc.Answer(ctx, "s1", "What is the fee?", []SourceDocument{{Source: "text#1", Text: "The fee is $10.90."}})
	require.NoError(t, err)

	res := f.svc.ClearDocuments(ctx, "s1")
	assert.True(t, res.Success)
	assert.Equal(t, "Cleared all documents for session s1", res.Message)
	assert.False(t, f.manager.Exists(ctx, "s1"))

	stored, err := f.history.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	again, err := f.svc.Answer(ctx, "s1", "What is the fee?", nil)
	require.NoError(t, err)
	assert.Equal(t, response.MessageUploadDocuments, again.Answer)
}

func TestReset_ForgetsEverything(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	_, err := f.svc.Answer(ctx, "s1", "What is the fee?", []SourceDocument{{Source: "text#1", Text: "The fee is $10.90."}})
	require.NoError(t, err)

	res, err := f.svc.Reset(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Session s1 deleted successfully", res.Message)

	stored, err := f.history.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.False(t, f.manager.Exists(ctx, "s1"))
	assert.Contains(t, f.publisher.types(), events.SessionDeleted)
}

func TestSweep_ClearsCollectionsAndHistory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := t.Context()

	for _, sid := range []string{"s1", "s2"} {
		_, err := f.svc.Answer(ctx, sid, "What is the fee?", []SourceDocument{{Source: "text#1", Text: "The fee is $10.90."}})
		require.NoError(t, err)
	}

	require.NoError(t, f.svc.Sweep(ctx))

	names, err := f.manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
	for _, sid := range []string{"s1", "s2"} {
		stored, err := f.history.Get(ctx, sid)
		require.NoError(t, err)
		assert.Empty(t, stored)
	}
	types := f.publisher.types()
	assert.Equal(t, events.StoreSwept, types[len(types)-1])
}
