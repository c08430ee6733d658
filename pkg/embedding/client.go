package embedding

import (
	"context"
	"strings"
	"sync"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/metrics"
	"ai-docqa-be/pkg/retry"
)

const DefaultDimension = 768

// Client wraps a provider with retries and the zero-vector fallback. Embed never returns fewer vectors
// than it was given texts, and every vector it returns has the currently latched dimension.
type Client struct {
	provider EmbeddingProvider
	policy   retry.Policy
	logger   logger.ILogger
	metrics  *metrics.Metrics

	mu        sync.RWMutex
	dimension int
	latched   bool
}

func NewClient(provider EmbeddingProvider, policy retry.Policy, defaultDimension int, log logger.ILogger, m *metrics.Metrics) *Client {
	if defaultDimension <= 0 {
		defaultDimension = DefaultDimension
	}
	if policy.Retryable == nil {
		policy = policy.When(apperr.IsRetryable)
	}
	return &Client{
		provider:  provider,
		policy:    policy,
		logger:    log,
		metrics:   m,
		dimension: defaultDimension,
	}
}

// Dimension is the latched embedding size, or the configured default before the first success.
func (c *Client) Dimension() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dimension
}

// Latched reports whether the dimension was observed from a real response.
func (c *Client) Latched() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latched
}

// Embed returns one vector per text, in order. Texts are embedded one after another; blank texts
// and texts whose embedding failed get a zero vector sized after the whole batch has been seen.
func (c *Client) Embed(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	var missing []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			missing = append(missing, i)
			continue
		}

		vec, err := c.generate(ctx, text)
		if err != nil {
			c.logger.Error("EmbeddingClient", "Embedding failed, substituting zero vector", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			c.metrics.EmbeddingFallback(fallbackReason(err))
			missing = append(missing, i)
			continue
		}
		out[i] = vec
	}

	for _, i := range missing {
		out[i] = c.zeroVector()
	}
	return out
}

// EmbedOne is the probing variant: it returns nil when no embedding could be produced.
func (c *Client) EmbedOne(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	vec, err := c.generate(ctx, text)
	if err != nil {
		c.logger.Warn("EmbeddingClient", "Embedding probe failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return vec
}

func (c *Client) generate(ctx context.Context, text string) ([]float32, error) {
	vec, err := retry.Do(ctx, c.policy, func(ctx context.Context) ([]float32, error) {
		return c.provider.Generate(ctx, text)
	}, func(attempt int, err error, wait time.Duration) {
		c.metrics.Retry("embedding")
		c.logger.Warn("EmbeddingClient", "Retrying embedding request", map[string]interface{}{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err.Error(),
		})
	})
	if err != nil {
		return nil, err
	}
	c.observe(len(vec))
	return vec, nil
}

func (c *Client) observe(dim int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.latched {
		c.dimension = dim
		c.latched = true
		c.logger.Info("EmbeddingClient", "Embedding dimension latched", map[string]interface{}{"dimension": dim})
		return
	}
	if dim != c.dimension {
		c.logger.Warn("EmbeddingClient", "Embedding dimension changed", map[string]interface{}{
			"previous": c.dimension,
			"current":  dim,
		})
		c.metrics.DimensionChanged()
		c.dimension = dim
	}
}

func (c *Client) zeroVector() []float32 {
	return make([]float32, c.Dimension())
}

func fallbackReason(err error) string {
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "unknown"
}
