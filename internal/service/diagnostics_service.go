package service

import (
	"context"
	"os"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/pkg/rag/collection"
)

type IDiagnosticsService interface {
	ListCollections(ctx context.Context) (*dto.ListCollectionsResponse, error)
	SessionCollections(ctx context.Context) (*dto.SessionCollectionsResponse, error)
	Diagnostics(ctx context.Context) *dto.DiagnosticsResponse
	StoreDiagnostics(ctx context.Context) (*dto.StoreDiagnosticsResponse, error)
	Health(ctx context.Context) *dto.HealthResponse
}

// EmbeddingProbe is the part of the embedding client the health check needs.
type EmbeddingProbe interface {
	EmbedOne(ctx context.Context, text string) []float32
	Dimension() int
	Latched() bool
}

type diagnosticsService struct {
	collections *collection.Manager
	embedder    EmbeddingProbe
	logger      logger.ILogger
}

func NewDiagnosticsService(collections *collection.Manager, embedder EmbeddingProbe, log logger.ILogger) IDiagnosticsService {
	return &diagnosticsService{
		collections: collections,
		embedder:    embedder,
		logger:      log,
	}
}

func (ds *diagnosticsService) ListCollections(ctx context.Context) (*dto.ListCollectionsResponse, error) {
	names, err := ds.collections.List(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ListCollectionsResponse{Collections: nonNil(names)}, nil
}

// SessionCollections lists live sessions. Collections are named by session id, so all three lists match.
func (ds *diagnosticsService) SessionCollections(ctx context.Context) (*dto.SessionCollectionsResponse, error) {
	names, err := ds.collections.List(ctx)
	if err != nil {
		return nil, err
	}
	names = nonNil(names)
	return &dto.SessionCollectionsResponse{
		Collections:        names,
		SessionCollections: names,
		SessionIds:         names,
	}, nil
}

// Diagnostics reports on the storage location. Failures are reported in the body, never as an error.
func (ds *diagnosticsService) Diagnostics(ctx context.Context) *dto.DiagnosticsResponse {
	res := &dto.DiagnosticsResponse{
		Backend:           ds.collections.Backend(),
		Location:          ds.collections.Location(),
		DirectoryContents: []string{},
		Collections:       []string{},
	}

	if info, err := os.Stat(res.Location); err == nil {
		res.DirectoryExists = true
		res.IsDirectory = info.IsDir()
		if res.IsDirectory {
			entries, err := os.ReadDir(res.Location)
			if err != nil {
				res.Error = err.Error()
				return res
			}
			for _, e := range entries {
				res.DirectoryContents = append(res.DirectoryContents, e.Name())
			}
		}
	}

	names, err := ds.collections.List(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Collections = nonNil(names)
	return res
}

func (ds *diagnosticsService) StoreDiagnostics(ctx context.Context) (*dto.StoreDiagnosticsResponse, error) {
	stats, err := ds.collections.Stats(ctx)
	if err != nil {
		return nil, err
	}

	res := &dto.StoreDiagnosticsResponse{
		Location:    ds.collections.Location(),
		Collections: make([]dto.CollectionStatDTO, 0, len(stats)),
	}
	for _, s := range stats {
		item := dto.CollectionStatDTO{Name: s.Name, Error: s.Error}
		if s.Error == "" {
			count := s.Count
			item.Count = &count
		}
		res.Collections = append(res.Collections, item)
	}
	return res, nil
}

// Health embeds a probe sentence. The embedding client never fails loudly, so a missing vector is
// the only signal that the backend is down.
func (ds *diagnosticsService) Health(ctx context.Context) *dto.HealthResponse {
	vector := ds.embedder.EmbedOne(ctx, "health check")
	res := &dto.HealthResponse{
		EmbeddingOk:        len(vector) > 0 && !isZero(vector),
		EmbeddingDimension: ds.embedder.Dimension(),
		DimensionLatched:   ds.embedder.Latched(),
		Backend:            ds.collections.Backend(),
	}

	names, err := ds.collections.List(ctx)
	if err != nil {
		ds.logger.Warn("DiagnosticsService", "Health check could not list collections", map[string]interface{}{"error": err.Error()})
	}
	res.CollectionCount = len(names)
	return res
}

func nonNil(names []string) []string {
	if names == nil {
		return []string{}
	}
	return names
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
