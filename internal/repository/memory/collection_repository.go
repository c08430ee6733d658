package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/utils"
)

type memoryCollection struct {
	order   []string
	records map[string]*entity.ChunkRecord
	created int
}

// CollectionRepository keeps collections in process memory. Nothing survives a restart.
type CollectionRepository struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	seq         int
}

func NewCollectionRepository() *CollectionRepository {
	return &CollectionRepository{collections: make(map[string]*memoryCollection)}
}

var _ contract.CollectionRepository = (*CollectionRepository)(nil)

func (r *CollectionRepository) Create(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.getOrCreate(name)
	return nil
}

func (r *CollectionRepository) getOrCreate(name string) *memoryCollection {
	c, ok := r.collections[name]
	if !ok {
		r.seq++
		c = &memoryCollection{records: make(map[string]*entity.ChunkRecord), created: r.seq}
		r.collections[name] = c
	}
	return c
}

func (r *CollectionRepository) Exists(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.collections[name]
	return ok, nil
}

func (r *CollectionRepository) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return r.collections[names[i]].created < r.collections[names[j]].created
	})
	return names, nil
}

func (r *CollectionRepository) Count(ctx context.Context, name string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[name]
	if !ok {
		return 0, notFound("count records", name)
	}
	return int64(len(c.records)), nil
}

func (r *CollectionRepository) Upsert(ctx context.Context, name string, records []*entity.ChunkRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.getOrCreate(name)
	for _, rec := range records {
		cp := *rec
		cp.Collection = name
		cp.Vector = append([]float32(nil), rec.Vector...)
		if _, exists := c.records[rec.Id]; !exists {
			c.order = append(c.order, rec.Id)
		}
		c.records[rec.Id] = &cp
	}
	return nil
}

func (r *CollectionRepository) Query(ctx context.Context, name string, vector []float32, n int) ([]*entity.ChunkMatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collections[name]
	if !ok {
		return nil, notFound("query records", name)
	}

	candidates := make([]*entity.ChunkRecord, 0, len(c.order))
	vectors := make([][]float32, 0, len(c.order))
	for _, id := range c.order {
		rec := c.records[id]
		if len(rec.Vector) != len(vector) {
			continue
		}
		candidates = append(candidates, rec)
		vectors = append(vectors, rec.Vector)
	}

	nearest := utils.NearestN(vector, vectors, n)
	matches := make([]*entity.ChunkMatch, len(nearest))
	for i, s := range nearest {
		rec := candidates[s.Index]
		matches[i] = &entity.ChunkMatch{
			Id:       rec.Id,
			Text:     rec.Text,
			Distance: s.Distance,
			Metadata: rec.Metadata,
		}
	}
	return matches, nil
}

func (r *CollectionRepository) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.collections[name]; !ok {
		return notFound("delete collection", name)
	}
	delete(r.collections, name)
	return nil
}

func (r *CollectionRepository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections = make(map[string]*memoryCollection)
	return nil
}

func (r *CollectionRepository) Location() string {
	return "memory"
}

func (r *CollectionRepository) Backend() string {
	return "memory"
}

func notFound(op, name string) error {
	return apperr.Storage(op, fmt.Errorf("%w: %s", contract.ErrCollectionNotFound, name))
}
