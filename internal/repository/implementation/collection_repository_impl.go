package implementation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/mapper"
	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/pkg/apperr"
	"ai-docqa-be/pkg/database"
	"ai-docqa-be/pkg/utils"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	BackendPostgres = "postgres"
	BackendSqlite   = "sqlite"
)

// CollectionRepositoryImpl keeps collections in two tables. On Postgres nearest neighbours are
// ordered by pgvector's cosine operator; on sqlite the collection is scored in process.
type CollectionRepositoryImpl struct {
	mu      sync.RWMutex
	db      *gorm.DB
	backend string
	dir     string
	mapper  *mapper.VectorRecordMapper
}

func NewPostgresCollectionRepository(db *gorm.DB) (*CollectionRepositoryImpl, error) {
	r := &CollectionRepositoryImpl{
		db:      db,
		backend: BackendPostgres,
		mapper:  mapper.NewVectorRecordMapper(),
	}
	if err := r.migrate(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewSqliteCollectionRepository opens the store kept in dir, creating the directory when missing.
func NewSqliteCollectionRepository(dir string) (*CollectionRepositoryImpl, error) {
	db, err := database.NewSqliteDB(dir)
	if err != nil {
		return nil, apperr.Storage("open vector store", err)
	}
	r := &CollectionRepositoryImpl{
		db:      db,
		backend: BackendSqlite,
		dir:     dir,
		mapper:  mapper.NewVectorRecordMapper(),
	}
	if err := r.migrate(); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return r, nil
}

var _ contract.CollectionRepository = (*CollectionRepositoryImpl)(nil)

func (r *CollectionRepositoryImpl) migrate() error {
	if err := r.db.AutoMigrate(&model.VectorCollection{}, &model.VectorRecord{}); err != nil {
		return apperr.Storage("migrate vector store", err)
	}
	return nil
}

func (r *CollectionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *CollectionRepositoryImpl) Create(ctx context.Context, name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.VectorCollection{Name: name}).Error
	if err != nil {
		return apperr.Storage("create collection", err)
	}
	return nil
}

func (r *CollectionRepositoryImpl) Exists(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exists(r.db.WithContext(ctx), name)
}

func (r *CollectionRepositoryImpl) exists(db *gorm.DB, name string) (bool, error) {
	var count int64
	if err := db.Model(&model.VectorCollection{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, apperr.Storage("find collection", err)
	}
	return count > 0, nil
}

func (r *CollectionRepositoryImpl) List(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	err := r.db.WithContext(ctx).
		Model(&model.VectorCollection{}).
		Order("created_at ASC").
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, apperr.Storage("list collections", err)
	}
	return names, nil
}

func (r *CollectionRepositoryImpl) Count(ctx context.Context, name string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	db := r.db.WithContext(ctx)
	if err := r.mustExist(db, name, "count records"); err != nil {
		return 0, err
	}

	var count int64
	query := r.applySpecifications(db.Model(&model.VectorRecord{}), specification.ByCollection{Name: name})
	if err := query.Count(&count).Error; err != nil {
		return 0, apperr.Storage("count records", err)
	}
	return count, nil
}

func (r *CollectionRepositoryImpl) Upsert(ctx context.Context, name string, records []*entity.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := r.mapper.ToModels(records)
	for _, m := range models {
		m.CollectionName = name
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.VectorCollection{Name: name}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection_name"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document", "embedding", "dimension", "metadata", "updated_at"}),
		}).Create(&models).Error
	})
	if err != nil {
		return apperr.Storage("upsert records", err)
	}
	return nil
}

func (r *CollectionRepositoryImpl) Query(ctx context.Context, name string, vector []float32, n int) ([]*entity.ChunkMatch, error) {
	if n <= 0 {
		n = 4
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	db := r.db.WithContext(ctx)
	if err := r.mustExist(db, name, "query records"); err != nil {
		return nil, err
	}

	if r.backend == BackendPostgres && !isZero(vector) {
		return r.queryPostgres(db, name, vector, n)
	}
	return r.queryInProcess(db, name, vector, n)
}

func (r *CollectionRepositoryImpl) queryPostgres(db *gorm.DB, name string, vector []float32, n int) ([]*entity.ChunkMatch, error) {
	type result struct {
		model.VectorRecord
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)
	query := r.applySpecifications(db.Table(model.VectorRecord{}.TableName()),
		specification.ByCollection{Name: name},
		specification.ByDimension{Dimension: len(vector)},
	)
	err := query.
		Select("vector_records.*, embedding <=> ? AS distance", queryVector).
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(n).
		Scan(&results).Error
	if err != nil {
		return nil, apperr.Storage("query records", err)
	}

	matches := make([]*entity.ChunkMatch, len(results))
	for i := range results {
		distance := results[i].Distance
		// pgvector yields NaN against stored zero vectors
		if math.IsNaN(distance) {
			distance = 1
		}
		matches[i] = r.mapper.ToMatch(&results[i].VectorRecord, distance)
	}
	return matches, nil
}

func (r *CollectionRepositoryImpl) queryInProcess(db *gorm.DB, name string, vector []float32, n int) ([]*entity.ChunkMatch, error) {
	var models []*model.VectorRecord
	query := r.applySpecifications(db,
		specification.ByCollection{Name: name},
		specification.ByDimension{Dimension: len(vector)},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, apperr.Storage("query records", err)
	}

	candidates := make([][]float32, len(models))
	for i, m := range models {
		candidates[i] = m.Embedding.Slice()
	}

	nearest := utils.NearestN(vector, candidates, n)
	matches := make([]*entity.ChunkMatch, len(nearest))
	for i, s := range nearest {
		matches[i] = r.mapper.ToMatch(models[s.Index], s.Distance)
	}
	return matches, nil
}

func (r *CollectionRepositoryImpl) Delete(ctx context.Context, name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("name = ?", name).Delete(&model.VectorCollection{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return contract.ErrCollectionNotFound
		}
		return r.applySpecifications(tx, specification.ByCollection{Name: name}).Delete(&model.VectorRecord{}).Error
	})
	if err != nil {
		return apperr.Storage("delete collection", err)
	}
	return nil
}

// Reset drops every collection. The sqlite store is rebuilt from an empty directory.
func (r *CollectionRepositoryImpl) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == BackendSqlite {
		if err := database.Close(r.db); err != nil {
			return apperr.Storage("reset vector store", fmt.Errorf("close: %w", err))
		}
		if err := os.RemoveAll(r.dir); err != nil {
			return apperr.Storage("reset vector store", fmt.Errorf("remove %s: %w", r.dir, err))
		}
		db, err := database.NewSqliteDB(r.dir)
		if err != nil {
			return apperr.Storage("reset vector store", err)
		}
		r.db = db
		return r.migrate()
	}

	if err := r.db.WithContext(ctx).Migrator().DropTable(&model.VectorRecord{}, &model.VectorCollection{}); err != nil {
		return apperr.Storage("reset vector store", err)
	}
	return r.migrate()
}

func (r *CollectionRepositoryImpl) Location() string {
	if r.backend == BackendSqlite {
		return r.dir
	}
	return r.db.Name()
}

func (r *CollectionRepositoryImpl) Backend() string {
	return r.backend
}

func (r *CollectionRepositoryImpl) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return database.Close(r.db)
}

func (r *CollectionRepositoryImpl) mustExist(db *gorm.DB, name, op string) error {
	ok, err := r.exists(db, name)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Storage(op, fmt.Errorf("%w: %s", contract.ErrCollectionNotFound, name))
	}
	return nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// IsNotFound reports whether err means the collection does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, contract.ErrCollectionNotFound)
}
