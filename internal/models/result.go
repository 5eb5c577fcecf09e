package models

// QueryResult is a single ranked chunk returned by similarity search.
type QueryResult struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// IngestResult is returned by a successful (or durably-degraded) ingestion.
type IngestResult struct {
	Status         string `json:"status"`
	File           string `json:"file"`
	ChunksCreated  int    `json:"chunks_created"`
	TotalDocuments int    `json:"total_documents"`
}

// ClearResult is returned by clear.
type ClearResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResult is the structured failure shape handed to callers that must
// present a textual explanation instead of failing.
type ErrorResult struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// QueryRequest is the body of query and search requests.
type QueryRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// QueryResponse wraps the formatted excerpts returned by query.
type QueryResponse struct {
	Query   string `json:"query"`
	Context string `json:"context"`
}

// SearchResponse is the structured response of search.
type SearchResponse struct {
	Query     string         `json:"query"`
	Results   []*QueryResult `json:"results"`
	Total     int            `json:"total"`
	QueryTime int64          `json:"query_time_ms"`
}

// Status summarizes the corpus and catalog. Drift is true when the catalog's
// active chunk count disagrees with the corpus size.
type Status struct {
	CorpusChunks    int      `json:"corpus_chunks"`
	Dimensions      int      `json:"dimensions"`
	Sources         []string `json:"sources"`
	ActiveDocuments int64    `json:"active_documents"`
	CatalogChunks   int64    `json:"catalog_chunks"`
	Drift           bool     `json:"drift"`
	EmbeddingReady  bool     `json:"embedding_ready"`
	DiskBytes       int64    `json:"disk_bytes,omitempty"`
}
