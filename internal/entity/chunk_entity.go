package entity

import "time"

// ChunkRecord is one stored chunk of a collection, whatever backend holds it.
type ChunkRecord struct {
	Id         string
	Collection string
	Text       string
	Vector     []float32
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}

// ChunkMatch is a query hit. Distance is the cosine distance to the query vector; lower is closer.
type ChunkMatch struct {
	Id       string
	Text     string
	Distance float64
	Metadata map[string]interface{}
}

type CollectionStat struct {
	Name  string
	Count int64
	Error string
}
