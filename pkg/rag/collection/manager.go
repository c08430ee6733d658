// Package collection owns the per-session vector collections.
package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/metrics"
)

const (
	// DefaultName is used when a caller has no session id.
	DefaultName = "documents"

	DefaultTopK             = 4
	DefaultDeleteRetryDelay = 500 * time.Millisecond
)

// Embedder produces the vectors stored in, and used to query, a collection.
type Embedder interface {
	Embed(ctx context.Context, texts []string) [][]float32
	EmbedOne(ctx context.Context, text string) []float32
}

// Manager creates, queries and deletes collections. Distinct sessions never block each other;
// mutations of one collection are serialized.
type Manager struct {
	repo             contract.CollectionRepository
	embedder         Embedder
	logger           logger.ILogger
	metrics          *metrics.Metrics
	deleteRetryDelay time.Duration

	locksMu sync.Mutex
	locks   map[string]*nameLock
}

// nameLock is dropped from the map once nobody holds or waits on it, so deleted sessions leave nothing behind.
type nameLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(repo contract.CollectionRepository, embedder Embedder, deleteRetryDelay time.Duration, log logger.ILogger, m *metrics.Metrics) *Manager {
	if deleteRetryDelay <= 0 {
		deleteRetryDelay = DefaultDeleteRetryDelay
	}
	return &Manager{
		repo:             repo,
		embedder:         embedder,
		logger:           log,
		metrics:          m,
		deleteRetryDelay: deleteRetryDelay,
		locks:            make(map[string]*nameLock),
	}
}

// NameFor maps a session id to its collection name.
func NameFor(sessionId string) string {
	if sessionId == "" {
		return DefaultName
	}
	return sessionId
}

func (m *Manager) lock(name string) func() {
	m.locksMu.Lock()
	l, ok := m.locks[name]
	if !ok {
		l = &nameLock{}
		m.locks[name] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, name)
		}
		m.locksMu.Unlock()
	}
}

// Setup gets or creates the session's collection. Calling it again returns a handle to the same one.
func (m *Manager) Setup(ctx context.Context, sessionId string) (*Collection, error) {
	name := NameFor(sessionId)
	if err := m.repo.Create(ctx, name); err != nil {
		m.metrics.StorageError("setup")
		m.logger.Error("VectorStore", "Failed to set up collection", map[string]interface{}{
			"collection": name,
			"error":      err.Error(),
		})
		return nil, err
	}
	return &Collection{Name: name, manager: m}, nil
}

// Exists reports whether the session has a collection. Lookup failures count as absent.
func (m *Manager) Exists(ctx context.Context, sessionId string) bool {
	ok, err := m.repo.Exists(ctx, NameFor(sessionId))
	if err != nil {
		m.metrics.StorageError("exists")
		m.logger.Warn("VectorStore", "Collection lookup failed", map[string]interface{}{"error": err.Error()})
		return false
	}
	return ok
}

func (m *Manager) List(ctx context.Context) ([]string, error) {
	names, err := m.repo.List(ctx)
	if err != nil {
		m.metrics.StorageError("list")
		return nil, err
	}
	return names, nil
}

// Stats counts the records of every collection; a collection that cannot be counted carries its error.
func (m *Manager) Stats(ctx context.Context) ([]entity.CollectionStat, error) {
	names, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	stats := make([]entity.CollectionStat, 0, len(names))
	for _, name := range names {
		count, err := m.repo.Count(ctx, name)
		if err != nil {
			stats = append(stats, entity.CollectionStat{Name: name, Error: err.Error()})
			continue
		}
		stats = append(stats, entity.CollectionStat{Name: name, Count: count})
	}
	return stats, nil
}

func (m *Manager) Backend() string {
	return m.repo.Backend()
}

func (m *Manager) Location() string {
	return m.repo.Location()
}

// Delete removes the session's collection and confirms it is gone from List, retrying once after
// the configured delay. A collection that never existed counts as deleted.
func (m *Manager) Delete(ctx context.Context, sessionId string) bool {
	name := NameFor(sessionId)
	unlock := m.lock(name)
	defer unlock()

	if m.deleteAndVerify(ctx, name) {
		return true
	}

	m.logger.Warn("VectorStore", "Collection still listed after delete, retrying", map[string]interface{}{
		"collection": name,
		"delay":      m.deleteRetryDelay.String(),
	})
	select {
	case <-ctx.Done():
		return false
	case <-time.After(m.deleteRetryDelay):
	}

	if m.deleteAndVerify(ctx, name) {
		return true
	}
	m.metrics.StorageError("delete")
	m.logger.Error("VectorStore", "Failed to delete collection", map[string]interface{}{"collection": name})
	return false
}

func (m *Manager) deleteAndVerify(ctx context.Context, name string) bool {
	if err := m.repo.Delete(ctx, name); err != nil && !errors.Is(err, contract.ErrCollectionNotFound) {
		m.logger.Warn("VectorStore", "Delete failed", map[string]interface{}{
			"collection": name,
			"error":      err.Error(),
		})
	}
	names, err := m.repo.List(ctx)
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return false
		}
	}
	return true
}

// Sweep deletes every collection. If any deletion fails the whole store is destroyed and recreated.
// It returns an error only when collections are still listed afterwards.
func (m *Manager) Sweep(ctx context.Context) error {
	names, err := m.repo.List(ctx)
	failed := err != nil
	if err != nil {
		m.logger.Error("VectorStore", "Sweep could not list collections", map[string]interface{}{"error": err.Error()})
	}

	for _, name := range names {
		unlock := m.lock(name)
		err := m.repo.Delete(ctx, name)
		unlock()
		if err != nil && !errors.Is(err, contract.ErrCollectionNotFound) {
			failed = true
			m.logger.Error("VectorStore", "Sweep failed to delete collection", map[string]interface{}{
				"collection": name,
				"error":      err.Error(),
			})
		}
	}

	if failed {
		m.logger.Warn("VectorStore", "Rebuilding vector store from scratch", map[string]interface{}{"location": m.repo.Location()})
		m.metrics.Rebuilt()
		if err := m.repo.Reset(ctx); err != nil {
			m.metrics.StorageError("reset")
			return fmt.Errorf("rebuild vector store: %w", err)
		}
	}

	remaining, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("verify sweep: %w", err)
	}
	if len(remaining) > 0 {
		return fmt.Errorf("verify sweep: %d collections remain", len(remaining))
	}

	m.logger.Info("VectorStore", "Swept all collections", map[string]interface{}{"deleted": len(names)})
	return nil
}

// Collection is a handle to one session's collection, bound to the manager's embedder.
type Collection struct {
	Name    string
	manager *Manager
}

// Upsert inserts or replaces records by id. Records without a vector are embedded first.
func (c *Collection) Upsert(ctx context.Context, records ...*entity.ChunkRecord) error {
	m := c.manager

	var missing []int
	var texts []string
	for i, r := range records {
		if r.Vector == nil {
			missing = append(missing, i)
			texts = append(texts, r.Text)
		}
	}
	if len(texts) > 0 {
		vectors := m.embedder.Embed(ctx, texts)
		for j, idx := range missing {
			records[idx].Vector = vectors[j]
		}
	}

	unlock := m.lock(c.Name)
	defer unlock()

	if err := m.repo.Upsert(ctx, c.Name, records); err != nil {
		m.metrics.StorageError("upsert")
		m.logger.Error("VectorStore", "Upsert failed", map[string]interface{}{
			"collection": c.Name,
			"records":    len(records),
			"error":      err.Error(),
		})
		return err
	}
	return nil
}

// Query returns up to topK chunks closest to text, nearest first. Any failure, including an
// unavailable embedding, yields no matches.
func (c *Collection) Query(ctx context.Context, text string, topK int) []*entity.ChunkMatch {
	m := c.manager
	if topK <= 0 {
		topK = DefaultTopK
	}

	vector := m.embedder.EmbedOne(ctx, text)
	if len(vector) == 0 {
		m.logger.Warn("VectorStore", "No embedding for query, returning no matches", map[string]interface{}{"collection": c.Name})
		return nil
	}

	matches, err := m.repo.Query(ctx, c.Name, vector, topK)
	if err != nil {
		m.metrics.StorageError("query")
		m.logger.Error("VectorStore", "Query failed", map[string]interface{}{
			"collection": c.Name,
			"error":      err.Error(),
		})
		return nil
	}
	return matches
}

// Count is the number of stored records.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.manager.repo.Count(ctx, c.Name)
}
