package dto

type ListCollectionsResponse struct {
	Collections []string `json:"collections"`
}

type SessionCollectionsResponse struct {
	Collections        []string `json:"collections"`
	SessionCollections []string `json:"session_collections"`
	SessionIds         []string `json:"session_ids"`
}

type DiagnosticsResponse struct {
	Backend           string   `json:"backend"`
	Location          string   `json:"location"`
	DirectoryExists   bool     `json:"directory_exists"`
	IsDirectory       bool     `json:"is_directory"`
	DirectoryContents []string `json:"directory_contents"`
	Collections       []string `json:"collections"`
	Error             string   `json:"error,omitempty"`
}

type CollectionStatDTO struct {
	Name  string `json:"name"`
	Count *int64 `json:"count,omitempty"`
	Error string `json:"error,omitempty"`
}

type StoreDiagnosticsResponse struct {
	Location    string              `json:"location"`
	Collections []CollectionStatDTO `json:"collections"`
}

type HealthResponse struct {
	EmbeddingOk        bool   `json:"embedding_ok"`
	EmbeddingDimension int    `json:"embedding_dimension"`
	DimensionLatched   bool   `json:"dimension_latched"`
	Backend            string `json:"backend"`
	CollectionCount    int    `json:"collection_count"`
}
