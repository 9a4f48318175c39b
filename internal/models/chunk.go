// Package models defines core data structures for chunks, sources, and classification results.
package models

import "time"

// SectionType describes whether a chunk covers a whole structural section or part of one.
type SectionType string

const (
	// SectionComplete means the chunk holds an entire structural section.
	SectionComplete SectionType = "complete_section"
	// SectionPartial means the chunk holds part of a larger section.
	SectionPartial SectionType = "partial_section"
)

// Chunk is an immutable unit of retrievable text with its embedding.
type Chunk struct {
	ID            string      `json:"id"`
	SourceID      string      `json:"source_id"`
	Text          string      `json:"text"`
	Position      int         `json:"position"`
	SectionHeader string      `json:"section_header,omitempty"`
	SectionType   SectionType `json:"section_type,omitempty"`
	Embedding     []float32   `json:"embedding,omitempty"`
}

// Source is a document registered in a corpus.
type Source struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// IngestMode selects how an ingest mutates the corpus.
type IngestMode string

const (
	// ModeAppend adds the document to the corpus, deduplicating by content hash.
	ModeAppend IngestMode = "append"
	// ModeReplace discards the corpus and rebuilds it from the new document only.
	ModeReplace IngestMode = "replace"
)

// Ingest statuses reported in IngestResult.Status.
const (
	IngestStatusIngested         = "ingested"
	IngestStatusAlreadyProcessed = "already_processed"
	IngestStatusReplaced         = "replaced"
)

// IngestResult reports the outcome of a corpus mutation.
type IngestResult struct {
	ChunksAdded int    `json:"chunks_added"`
	TotalChunks int    `json:"total_chunks"`
	Status      string `json:"status"`
	ContentHash string `json:"content_hash"`
}

// CorpusStats is a snapshot of one corpus for introspection.
type CorpusStats struct {
	TotalChunks  int       `json:"total_chunks"`
	TotalSources int       `json:"total_sources"`
	Dimensions   int       `json:"dimensions"`
	Sources      []Source  `json:"sources"`
	UpdatedAt    time.Time `json:"updated_at"`
}
