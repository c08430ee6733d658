package mapper

import (
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type VectorRecordMapper struct{}

func NewVectorRecordMapper() *VectorRecordMapper {
	return &VectorRecordMapper{}
}

func (m *VectorRecordMapper) ToEntity(r *model.VectorRecord) *entity.ChunkRecord {
	if r == nil {
		return nil
	}

	return &entity.ChunkRecord{
		Id:         r.Id,
		Collection: r.CollectionName,
		Text:       r.Document,
		Vector:     r.Embedding.Slice(),
		Metadata:   map[string]interface{}(r.Metadata),
		CreatedAt:  r.CreatedAt,
	}
}

func (m *VectorRecordMapper) ToModel(r *entity.ChunkRecord) *model.VectorRecord {
	if r == nil {
		return nil
	}

	var metadata datatypes.JSONMap
	if r.Metadata != nil {
		metadata = datatypes.JSONMap(r.Metadata)
	}

	return &model.VectorRecord{
		CollectionName: r.Collection,
		Id:             r.Id,
		Document:       r.Text,
		Embedding:      pgvector.NewVector(r.Vector),
		Dimension:      len(r.Vector),
		Metadata:       metadata,
		CreatedAt:      r.CreatedAt,
	}
}

func (m *VectorRecordMapper) ToMatch(r *model.VectorRecord, distance float64) *entity.ChunkMatch {
	if r == nil {
		return nil
	}
	return &entity.ChunkMatch{
		Id:       r.Id,
		Text:     r.Document,
		Distance: distance,
		Metadata: map[string]interface{}(r.Metadata),
	}
}

func (m *VectorRecordMapper) ToModels(records []*entity.ChunkRecord) []*model.VectorRecord {
	models := make([]*model.VectorRecord, len(records))
	for i, r := range records {
		models[i] = m.ToModel(r)
	}
	return models
}
