package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/collection"
	"ai-docqa-be/pkg/rag/executor"
	"ai-docqa-be/pkg/rag/prompt"
	"ai-docqa-be/pkg/rag/response"
	"ai-docqa-be/pkg/utils"

	"github.com/google/uuid"
)

// IChatbotService is the contract every front end (REST, websocket) answers through.
type IChatbotService interface {
	Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error)
	Answer(ctx context.Context, sessionId, question string, documents []SourceDocument) (*AnswerResult, error)
	ClearDocuments(ctx context.Context, sessionId string) *dto.ClearDocumentsResponse
	Reset(ctx context.Context, sessionId string) (*dto.DeleteSessionResponse, error)
	Sweep(ctx context.Context) error
}

// SourceDocument is one uploaded document. Exactly one of PDF, Text or URL is set.
type SourceDocument struct {
	Source string
	PDF    []byte
	Text   string
	URL    string
}

type AnswerResult struct {
	SessionId    string
	Answer       string
	Category     string
	Conversation []llm.Message
}

type PDFExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type WebExtractor interface {
	Extract(ctx context.Context, link string) (string, error)
}

type ChatbotConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type chatbotService struct {
	collections  *collection.Manager
	executor     *executor.PipelineExecutor
	history      contract.ConversationRepository
	pdfExtractor PDFExtractor
	webExtractor WebExtractor
	publisher    IPublisherService
	cfg          ChatbotConfig
	logger       logger.ILogger
}

func NewChatbotService(
	collections *collection.Manager,
	pipelineExecutor *executor.PipelineExecutor,
	history contract.ConversationRepository,
	pdfExtractor PDFExtractor,
	webExtractor WebExtractor,
	publisher IPublisherService,
	cfg ChatbotConfig,
	log logger.ILogger,
) IChatbotService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = utils.DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = utils.DefaultChunkOverlap
	}
	return &chatbotService{
		collections:  collections,
		executor:     pipelineExecutor,
		history:      history,
		pdfExtractor: pdfExtractor,
		webExtractor: webExtractor,
		publisher:    publisher,
		cfg:          cfg,
		logger:       log,
	}
}

// Ask decodes the REST request and answers it.
func (cs *chatbotService) Ask(ctx context.Context, request *dto.AskRequest) (*dto.AskResponse, error) {
	var documents []SourceDocument
	for i, encoded := range request.PdfContents {
		documents = append(documents, SourceDocument{
			Source: fmt.Sprintf("pdf#%d", i+1),
			PDF:    decodeBase64(encoded),
		})
	}
	for i, text := range request.Documents {
		documents = append(documents, SourceDocument{Source: fmt.Sprintf("text#%d", i+1), Text: text})
	}
	for _, link := range request.Urls {
		documents = append(documents, SourceDocument{Source: link, URL: link})
	}

	result, err := cs.Answer(ctx, request.SessionId, request.Question, documents)
	if err != nil {
		return nil, err
	}
	return &dto.AskResponse{
		SessionId:    result.SessionId,
		Answer:       result.Answer,
		Category:     result.Category,
		Conversation: ToConversationTurns(result.Conversation),
	}, nil
}

// Answer ingests documents into a session that has none yet, routes the question and records both
// turns in the conversation.
func (cs *chatbotService) Answer(ctx context.Context, sessionId, question string, documents []SourceDocument) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperr.Input(response.MessageEmptyQuestion)
	}

	if sessionId == "" {
		sessionId = uuid.New().String()
	}
	isNew := !cs.collections.Exists(ctx, sessionId)

	coll, err := cs.collections.Setup(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if isNew {
		cs.publisher.Publish(ctx, events.NewSessionEvent(events.SessionCreated, sessionId, nil))
	}

	stored, err := coll.Count(ctx)
	if err != nil {
		cs.logger.Warn("ChatbotService", "Could not count stored chunks, treating session as empty", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		stored = 0
	}

	if len(documents) > 0 {
		if stored == 0 {
			stored, err = cs.ingest(ctx, sessionId, coll, documents)
			if err != nil {
				return nil, err
			}
		} else {
			cs.logger.Info("ChatbotService", "Session already has documents, skipping upload", map[string]interface{}{
				"session_id": sessionId,
				"documents":  len(documents),
			})
		}
	}

	history, err := cs.history.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	// docs must stay a nil interface when nothing is stored
	var docs executor.Retriever
	if stored > 0 {
		docs = coll
	}
	result := cs.executor.Execute(ctx, question, history, docs)

	turns := []llm.Message{
		{Role: llm.RoleUser, Content: question},
		{Role: llm.RoleAssistant, Content: result.Reply},
	}
	if err := cs.history.Append(ctx, sessionId, turns...); err != nil {
		return nil, err
	}

	cs.publisher.Publish(ctx, events.NewSessionEvent(events.AnswerGenerated, sessionId, map[string]interface{}{
		"category":  string(result.Category),
		"chunks":    len(result.Chunks),
		"generated": result.Generated,
	}))

	return &AnswerResult{
		SessionId:    sessionId,
		Answer:       result.Reply,
		Category:     result.Category.Label(),
		Conversation: append(history, turns...),
	}, nil
}

// ingest extracts, chunks and stores documents. Documents that fail are skipped; it fails only when
// none of them could be stored.
func (cs *chatbotService) ingest(ctx context.Context, sessionId string, coll *collection.Collection, documents []SourceDocument) (int64, error) {
	var stored int64
	succeeded := 0

	for i, doc := range documents {
		text, err := cs.extract(ctx, doc)
		if err != nil {
			cs.logger.Warn("ChatbotService", "Skipping document", map[string]interface{}{
				"session_id": sessionId,
				"source":     doc.Source,
				"error":      err.Error(),
			})
			continue
		}

		chunks := utils.SplitText(text, cs.cfg.ChunkSize, cs.cfg.ChunkOverlap)
		records := make([]*entity.ChunkRecord, 0, len(chunks))
		for j, chunk := range chunks {
			cleaned := prompt.CleanChunkText(chunk)
			if cleaned == "" {
				continue
			}
			records = append(records, &entity.ChunkRecord{
				Id:   fmt.Sprintf("session_%s_doc%d_chunk%d", sessionId, i+1, j+1),
				Text: cleaned,
				Metadata: map[string]interface{}{
					"session_id":  sessionId,
					"source":      doc.Source,
					"doc_index":   i + 1,
					"chunk_index": j + 1,
				},
			})
		}
		if len(records) == 0 {
			cs.logger.Warn("ChatbotService", "Document produced no text", map[string]interface{}{
				"session_id": sessionId,
				"source":     doc.Source,
			})
			continue
		}

		if err := coll.Upsert(ctx, records...); err != nil {
			continue
		}
		cs.logger.Info("ChatbotService", "Document stored", map[string]interface{}{
			"session_id": sessionId,
			"source":     doc.Source,
			"chunks":     len(records),
		})
		stored += int64(len(records))
		succeeded++
	}

	if succeeded == 0 {
		return 0, apperr.Input(response.MessageNoDocsProcessed)
	}

	cs.publisher.Publish(ctx, events.NewSessionEvent(events.DocumentsIngested, sessionId, map[string]interface{}{
		"documents": succeeded,
		"chunks":    stored,
	}))
	return stored, nil
}

func (cs *chatbotService) extract(ctx context.Context, doc SourceDocument) (string, error) {
	switch {
	case doc.URL != "":
		return cs.webExtractor.Extract(ctx, doc.URL)
	case doc.PDF != nil:
		return cs.pdfExtractor.Extract(ctx, doc.PDF)
	case strings.TrimSpace(doc.Text) != "":
		return doc.Text, nil
	}
	return "", apperr.Input("The document is empty or could not be decoded")
}

// ClearDocuments drops the session's collection and keeps its conversation.
func (cs *chatbotService) ClearDocuments(ctx context.Context, sessionId string) *dto.ClearDocumentsResponse {
	if !cs.collections.Exists(ctx, sessionId) {
		return &dto.ClearDocumentsResponse{
			Success: true,
			Message: fmt.Sprintf("No documents found for session %s", sessionId),
		}
	}

	if !cs.collections.Delete(ctx, sessionId) {
		return &dto.ClearDocumentsResponse{
			Success: false,
			Error:   fmt.Sprintf("Failed to clear documents for session %s", sessionId),
		}
	}

	cs.publisher.Publish(ctx, events.NewSessionEvent(events.DocumentsCleared, sessionId, nil))
	return &dto.ClearDocumentsResponse{
		Success: true,
		Message: fmt.Sprintf("Cleared all documents for session %s", sessionId),
	}
}

// Reset forgets the conversation and deletes the collection.
func (cs *chatbotService) Reset(ctx context.Context, sessionId string) (*dto.DeleteSessionResponse, error) {
	if err := cs.history.Delete(ctx, sessionId); err != nil {
		return nil, err
	}
	if !cs.collections.Delete(ctx, sessionId) {
		return nil, apperr.Storage("reset session", fmt.Errorf("collection %s is still listed", sessionId))
	}

	cs.publisher.Publish(ctx, events.NewSessionEvent(events.SessionDeleted, sessionId, nil))
	return &dto.DeleteSessionResponse{
		Success: true,
		Message: fmt.Sprintf("Session %s deleted successfully", sessionId),
	}, nil
}

// Sweep clears every collection and all conversation history.
func (cs *chatbotService) Sweep(ctx context.Context) error {
	storeErr := cs.collections.Sweep(ctx)
	if err := cs.history.Clear(ctx); err != nil {
		cs.logger.Error("ChatbotService", "Failed to clear conversation history", map[string]interface{}{"error": err.Error()})
		if storeErr == nil {
			storeErr = err
		}
	}

	cs.publisher.Publish(ctx, events.NewSessionEvent(events.StoreSwept, "", map[string]interface{}{
		"ok": storeErr == nil,
	}))
	return storeErr
}

func ToConversationTurns(messages []llm.Message) []dto.ConversationTurn {
	turns := make([]dto.ConversationTurn, len(messages))
	for i, m := range messages {
		turns[i] = dto.ConversationTurn{Role: m.Role, Content: m.Content}
	}
	return turns
}

// decodeBase64 returns nil for undecodable input, which extraction then rejects.
func decodeBase64(encoded string) []byte {
	if i := strings.Index(encoded, ","); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil
	}
	return data
}
