// Package factory picks repository backends from configuration.
package factory

import (
	"fmt"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/implementation"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/internal/repository/redisrepo"
	"ai-docqa-be/pkg/database"

	"github.com/redis/go-redis/v9"
)

type RepositoryFactory interface {
	CollectionRepository() (contract.CollectionRepository, error)
	ConversationRepository() (contract.ConversationRepository, error)
	Close() error
}

type RepositoryFactoryImpl struct {
	cfg *config.Config
	rdb *redis.Client

	closers []func() error
}

// NewRepositoryFactory builds repositories for the configured backends. rdb may be nil when Redis
// is not configured.
func NewRepositoryFactory(cfg *config.Config, rdb *redis.Client) RepositoryFactory {
	return &RepositoryFactoryImpl{cfg: cfg, rdb: rdb}
}

func (f *RepositoryFactoryImpl) CollectionRepository() (contract.CollectionRepository, error) {
	vs := f.cfg.VectorStore
	switch vs.Backend {
	case "memory":
		return memory.NewCollectionRepository(), nil

	case implementation.BackendPostgres:
		if vs.Connection == "" {
			return nil, fmt.Errorf("vector store backend %q needs DB_CONNECTION_STRING", vs.Backend)
		}
		db, err := database.NewGormDBFromDSN(vs.Connection)
		if err != nil {
			return nil, err
		}
		repo, err := implementation.NewPostgresCollectionRepository(db)
		if err != nil {
			_ = database.Close(db)
			return nil, err
		}
		f.closers = append(f.closers, repo.Close)
		return repo, nil

	case implementation.BackendSqlite, "":
		repo, err := implementation.NewSqliteCollectionRepository(vs.Path)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, repo.Close)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown vector store backend %q", vs.Backend)
}

func (f *RepositoryFactoryImpl) ConversationRepository() (contract.ConversationRepository, error) {
	switch f.cfg.History.Backend {
	case "memory", "":
		return memory.NewConversationRepository(), nil
	case "redis":
		if f.rdb == nil {
			return nil, fmt.Errorf("history backend redis needs REDIS_URL")
		}
		return redisrepo.NewConversationRepository(f.rdb), nil
	}
	return nil, fmt.Errorf("unknown history backend %q", f.cfg.History.Backend)
}

// Close releases every database handle the factory opened.
func (f *RepositoryFactoryImpl) Close() error {
	var first error
	for _, closeFn := range f.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}
