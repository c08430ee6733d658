package bootstrap

import (
	"context"
	"fmt"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/controller"
	"ai-docqa-be/internal/handler"
	"ai-docqa-be/internal/pkg/logger"
	repoFactory "ai-docqa-be/internal/repository/factory"
	"ai-docqa-be/internal/service"
	"ai-docqa-be/internal/websocket"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/extract"
	"ai-docqa-be/pkg/llm/factory"
	"ai-docqa-be/pkg/metrics"
	"ai-docqa-be/pkg/rag/collection"
	"ai-docqa-be/pkg/rag/executor"
	"ai-docqa-be/pkg/rag/intent"
	"ai-docqa-be/pkg/rag/prompt"
	"ai-docqa-be/pkg/rag/response"
	"ai-docqa-be/pkg/retry"

	pktNats "ai-docqa-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	ChatbotController     controller.IChatbotController
	DiagnosticsController controller.IDiagnosticsController
	ChatHandler           *handler.ChatHandler

	// Services used directly by main.go and ragctl
	ChatbotService  service.IChatbotService
	ConsumerService service.IConsumerService

	Collections  *collection.Manager
	Embedder     *embedding.Client
	WebSocketHub *websocket.Hub
	Metrics      *metrics.Metrics
	Logger       logger.ILogger

	closers []func() error
}

// NewContainer wires every component. ctx bounds the lifetime of background goroutines (hub, websocket
// answer loops); cancel it at shutdown before calling Close.
func NewContainer(ctx context.Context, cfg *config.Config, sysLogger logger.ILogger) (*Container, error) {
	c := &Container{Logger: sysLogger, Metrics: metrics.New()}

	// 1. Optional infrastructure
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(ctx).Err(); err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to Redis", map[string]interface{}{"error": err.Error()})
		}
		c.closers = append(c.closers, rdb.Close)
	}

	var forwarder service.EventForwarder
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL)
		if err != nil {
			sysLogger.Warn("Bootstrap", "Failed to connect to NATS, events stay local", map[string]interface{}{"error": err.Error()})
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, func() error { natsPub.Close(); return nil })
		}
	}

	// 2. Repositories
	repos := repoFactory.NewRepositoryFactory(cfg, rdb)
	c.closers = append(c.closers, repos.Close)

	collectionRepo, err := repos.CollectionRepository()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	historyRepo, err := repos.ConversationRepository()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("conversation history: %w", err)
	}

	// 3. Model clients
	embeddingPolicy := retry.Exponential(cfg.Retry.EmbeddingMaxAttempts, cfg.Retry.EmbeddingBackoffBase, cfg.Retry.EmbeddingBackoffMax).
		WithJitter(cfg.Retry.Jitter)
	c.Embedder = embedding.NewClient(
		embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingTimeout),
		embeddingPolicy,
		cfg.Ai.EmbeddingDimension,
		sysLogger,
		c.Metrics,
	)
	sysLogger.Info("Bootstrap", "Embedding provider ready", map[string]interface{}{"model": cfg.Ai.EmbeddingModel})

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL, cfg.Ai.LLMTimeout)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info("Bootstrap", "LLM provider ready", map[string]interface{}{
		"provider": cfg.Ai.LLMProvider,
		"model":    cfg.Ai.LLMModel,
	})

	generator := response.NewGenerator(llmProvider, response.GeneratorConfig{
		HistoryTurns: cfg.Rag.ChatHistoryTurns,
		PromptBudget: cfg.Rag.CompletePromptBudget,
		Decoding: response.Decoding{
			Temperature:   cfg.Ai.Temperature,
			TopP:          cfg.Ai.TopP,
			TopK:          cfg.Ai.TopK,
			NumPredict:    cfg.Ai.NumPredict,
			RepeatPenalty: cfg.Ai.RepeatPenalty,
		},
		Policy: retry.Fixed(cfg.Retry.GenerationMaxAttempts, cfg.Retry.GenerationRetryDelay).WithJitter(cfg.Retry.Jitter),
	}, sysLogger, c.Metrics)

	// 4. RAG pipeline
	mode, err := intent.ParseMode(cfg.Rag.RouterMode)
	if err != nil {
		c.Close()
		return nil, err
	}
	resolver := intent.NewResolver(generator, mode, cfg.Rag.ClassifyWindowChars, sysLogger, c.Metrics)
	builder := prompt.NewBuilder(cfg.Rag.ContextCharBudget, cfg.Rag.PromptHistoryTurns)
	pipelineExecutor := executor.NewPipelineExecutor(resolver, builder, generator, cfg.Rag.RetrievalTopK, sysLogger)

	c.Collections = collection.NewManager(collectionRepo, c.Embedder, cfg.VectorStore.DeleteRetryDelay, sysLogger, c.Metrics)

	// 5. Event bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, pubSub.Close)

	// WebSocket Hub
	eventLog := logger.NewIsolatedLogger(cfg.App.EventLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, eventLog)
	go c.WebSocketHub.Run(ctx)

	publisherService := service.NewPublisherService(service.SessionEventsTopic, pubSub, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, service.SessionEventsTopic, eventLog, forwarder, c.WebSocketHub)

	// 6. Services
	c.ChatbotService = service.NewChatbotService(
		c.Collections,
		pipelineExecutor,
		historyRepo,
		extract.NewPDFExtractor(cfg.Extract.PdfToTextBin, cfg.Extract.Timeout),
		extract.NewWebExtractor(cfg.Extract.Timeout),
		publisherService,
		service.ChatbotConfig{ChunkSize: cfg.Rag.ChunkSize, ChunkOverlap: cfg.Rag.ChunkOverlap},
		sysLogger,
	)
	diagnosticsService := service.NewDiagnosticsService(c.Collections, c.Embedder, sysLogger)

	// 7. Controllers
	c.ChatbotController = controller.NewChatbotController(c.ChatbotService)
	c.DiagnosticsController = controller.NewDiagnosticsController(diagnosticsService)
	c.ChatHandler = handler.NewChatHandler(ctx, c.ChatbotService, c.WebSocketHub, sysLogger)

	return c, nil
}

// Close releases connections in reverse order of creation.
// Start subscribes the event consumer, then sweeps whatever a previous run left behind. The consumer
// comes first so the sweep's own event is delivered.
func (c *Container) Start(ctx context.Context) {
	if err := c.ConsumerService.Consume(ctx); err != nil {
		c.Logger.Error("Bootstrap", "Consumer service failed to start", map[string]interface{}{"error": err.Error()})
	}
	if err := c.ChatbotService.Sweep(ctx); err != nil {
		c.Logger.Error("Bootstrap", "Startup sweep failed", map[string]interface{}{"error": err.Error()})
	}
}

func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.Logger.Warn("Bootstrap", "Error while closing", map[string]interface{}{"error": err.Error()})
		}
	}
	c.closers = nil
}
