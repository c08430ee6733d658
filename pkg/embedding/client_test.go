package embedding

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/metrics"
	"ai-docqa-be/pkg/retry"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOllama answers /api/embeddings from a table keyed by prompt.
type fakeOllama struct {
	mu       sync.Mutex
	calls    map[string]int
	requests []ollamaEmbeddingRequest
	respond  func(prompt string, call int) (int, string)
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req ollamaEmbeddingRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.Prompt]++
	call := f.calls[req.Prompt]
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	status, body := f.respond(req.Prompt, call)
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func newTestClient(t *testing.T, f *fakeOllama, m *metrics.Metrics) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	provider := NewOllamaProvider(srv.URL, "test-embed", time.Second)
	return NewClient(provider, retry.Exponential(3, time.Millisecond, 4*time.Millisecond), 8, logger.NewNopLogger(), m)
}

func threeDims(prompt string, call int) (int, string) {
	return http.StatusOK, `{"embedding":[3,0,4]}`
}

func TestEmbedEmptyBatch(t *testing.T) {
	c := newTestClient(t, &fakeOllama{respond: threeDims}, nil)
	assert.Empty(t, c.Embed(t.Context(), []string{}))
}

func TestEmbedBlankTextGetsZeroVectorOfLatchedDimension(t *testing.T) {
	f := &fakeOllama{respond: threeDims}
	c := newTestClient(t, f, nil)

	vecs := c.Embed(t.Context(), []string{"", "valid text"})

	require.Len(t, vecs, 2)
	assert.Equal(t, []float32{0, 0, 0}, vecs[0])
	assert.InDeltaSlice(t, []float32{0.6, 0, 0.8}, vecs[1], 1e-6)
	assert.Equal(t, 3, c.Dimension())
	assert.True(t, c.Latched())
	assert.Len(t, f.requests, 1, "blank input must not reach the backend")
}

func TestEmbedFailureFallsBackToZeroVectorAfterRetries(t *testing.T) {
	f := &fakeOllama{respond: func(prompt string, call int) (int, string) {
		if prompt == "broken" {
			return http.StatusInternalServerError, `{"error":"boom"}`
		}
		return threeDims(prompt, call)
	}}
	m := metrics.New()
	c := newTestClient(t, f, m)

	vecs := c.Embed(t.Context(), []string{"first", "broken", "last"})

	require.Len(t, vecs, 3)
	assert.Len(t, vecs[0], 3)
	assert.Equal(t, []float32{0, 0, 0}, vecs[1])
	assert.Len(t, vecs[2], 3)
	assert.Equal(t, 3, f.calls["broken"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingFallbacks.WithLabelValues("transport")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RetryAttempts.WithLabelValues("embedding")))
}

func TestEmbedRecoversFromMalformedResponse(t *testing.T) {
	f := &fakeOllama{respond: func(prompt string, call int) (int, string) {
		if call == 1 {
			return http.StatusOK, `{"embedding":`
		}
		if call == 2 {
			return http.StatusOK, `{"something":"else"}`
		}
		return threeDims(prompt, call)
	}}
	c := newTestClient(t, f, nil)

	vecs := c.Embed(t.Context(), []string{"flaky"})
	require.Len(t, vecs, 1)
	assert.InDeltaSlice(t, []float32{0.6, 0, 0.8}, vecs[0], 1e-6)
	assert.Equal(t, 3, f.calls["flaky"])
}

func TestEmbedFallsBackToDefaultDimensionBeforeAnySuccess(t *testing.T) {
	f := &fakeOllama{respond: func(prompt string, call int) (int, string) {
		return http.StatusServiceUnavailable, "down"
	}}
	c := newTestClient(t, f, nil)

	vecs := c.Embed(t.Context(), []string{"a", "b"})
	require.Len(t, vecs, 2)
	assert.Len(t, vecs[0], 8)
	assert.Len(t, vecs[1], 8)
	assert.False(t, c.Latched())
}

func TestEmbedUpdatesLatchedDimensionOnDrift(t *testing.T) {
	f := &fakeOllama{respond: func(prompt string, call int) (int, string) {
		if prompt == "wide" {
			return http.StatusOK, `{"embedding":[1,1,1,1,1]}`
		}
		return threeDims(prompt, call)
	}}
	m := metrics.New()
	c := newTestClient(t, f, m)

	c.Embed(t.Context(), []string{"narrow"})
	assert.Equal(t, 3, c.Dimension())

	c.Embed(t.Context(), []string{"wide"})
	assert.Equal(t, 5, c.Dimension())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EmbeddingDimensionChange))
}

func TestEmbedOneReturnsNilWhenUnavailable(t *testing.T) {
	f := &fakeOllama{respond: func(prompt string, call int) (int, string) {
		return http.StatusBadGateway, "nope"
	}}
	c := newTestClient(t, f, nil)

	assert.Nil(t, c.EmbedOne(t.Context(), "probe"))
	assert.Nil(t, c.EmbedOne(t.Context(), "   "))
}

func TestOllamaProviderRequestShape(t *testing.T) {
	f := &fakeOllama{respond: threeDims}
	srv := httptest.NewServer(f)
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", time.Second)
	vec, err := p.Generate(t.Context(), "hello world")

	require.NoError(t, err)
	assert.Len(t, vec, 3)
	require.Len(t, f.requests, 1)
	assert.Equal(t, ollamaEmbeddingRequest{Model: "nomic-embed-text", Prompt: "hello world", Stream: false}, f.requests[0])
}
