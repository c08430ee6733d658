package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type VectorCollection struct {
	Name      string    `gorm:"primaryKey;type:varchar(255)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}

type VectorRecord struct {
	CollectionName string          `gorm:"primaryKey;type:varchar(255)"`
	Id             string          `gorm:"primaryKey;type:varchar(255)"`
	Document       string          `gorm:"type:text"`
	Embedding      pgvector.Vector `gorm:"type:vector"` // dimension is latched at runtime, see Dimension
	Dimension      int             `gorm:"not null;index"`
	Metadata       datatypes.JSONMap
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (VectorRecord) TableName() string {
	return "vector_records"
}
