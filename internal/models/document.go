// Package models defines core data structures for chunks, catalog entries, and retrieval results.
package models

import "time"

// Chunk is a bounded excerpt of an ingested document. Chunks are immutable once
// appended to a corpus.
type Chunk struct {
	Text          string            `json:"text"`
	SourceName    string            `json:"source_name"`
	SourcePath    string            `json:"source_path"`
	ChunkIndex    int               `json:"chunk_index"`
	ExtraMetadata map[string]string `json:"extra_metadata,omitempty"`
}

// CatalogEntry is the durable record of one ingested file.
type CatalogEntry struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	FilePath    string    `json:"file_path"`
	FileSize    int64     `json:"file_size"`
	FileType    string    `json:"file_type"`
	ChunksCount int       `json:"chunks_count"`
	UploadedBy  *int64    `json:"uploaded_by,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	IsActive    bool      `json:"is_active"`
}

// ListedDocument is one row of list_ingested: an active catalog entry joined with
// the current corpus size.
type ListedDocument struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	FileType         string    `json:"file_type"`
	Chunks           int       `json:"chunks"`
	UploadedAt       time.Time `json:"uploaded_at"`
	VectorStoreTotal int       `json:"vector_store_total"`
}
