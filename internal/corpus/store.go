// Package corpus persists chunks, their embeddings, and the source registry
// for one domain (specification or pricing), and serves similarity search
// over them.
package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/chunker"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/models"
	"github.com/clearline/speclens/internal/vector"
)

// snapshot is one immutable corpus state. Ingest builds a new snapshot and
// swaps the pointer, so readers see either the old or the new state, never a
// half-updated one.
type snapshot struct {
	chunks    []models.Chunk
	matrix    [][]float32 // row i is chunks[i].Embedding
	sources   []models.Source
	updatedAt time.Time
}

func emptySnapshot() *snapshot {
	return &snapshot{updatedAt: time.Now()}
}

// Store is a corpus of chunks plus a source registry. Mutations are
// serialized by a single writer lock; reads go through an atomic snapshot.
type Store struct {
	name     string // "spec" or "pricing", used in logs and errors
	path     string // blob path; empty disables persistence
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	logger   *zap.Logger // optional; when set, logs debug events

	writeMu sync.Mutex
	snap    atomic.Pointer[snapshot]
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for debug output (ingest events, persistence).
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore creates an empty corpus store. path may be empty to keep the
// corpus in memory only.
func NewStore(name, path string, ch *chunker.Chunker, emb embedding.Embedder, opts ...StoreOption) *Store {
	s := &Store{
		name:     name,
		path:     path,
		chunker:  ch,
		embedder: emb,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(emptySnapshot())
	return s
}

// ContentHash returns the deterministic dedup hash of raw document bytes.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Ingest chunks, embeds, and registers a document. In append mode a document
// whose content hash is already registered is a no-op reported as
// already_processed. In replace mode the corpus is rebuilt from this document
// alone. The new state is persisted before it becomes visible to readers; on
// any failure the corpus keeps its last good state.
func (s *Store) Ingest(ctx context.Context, rawText, filename string, mode models.IngestMode) (*models.IngestResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	cur := s.snap.Load()
	hash := ContentHash([]byte(rawText))

	if mode == models.ModeAppend {
		for _, src := range cur.sources {
			if src.ContentHash == hash {
				if s.logger != nil {
					s.logger.Debug("corpus document already processed",
						zap.String("corpus", s.name), zap.String("filename", filename))
				}
				return &models.IngestResult{
					ChunksAdded: 0,
					TotalChunks: len(cur.chunks),
					Status:      models.IngestStatusAlreadyProcessed,
					ContentHash: hash,
				}, nil
			}
		}
	}

	sourceID := hash[:12]
	chunks := s.chunker.Chunk(sourceID, rawText)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrExtractionEmpty, filename)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", filename, err)
	}
	dims := s.embedder.Dimensions()
	for i := range chunks {
		if len(embeddings[i]) != dims {
			return nil, fmt.Errorf("embed %s: vector dimension %d, expected %d", filename, len(embeddings[i]), dims)
		}
		chunks[i].Embedding = embeddings[i]
	}

	source := models.Source{
		ID:          sourceID,
		Filename:    filename,
		ContentHash: hash,
		ChunkCount:  len(chunks),
		IngestedAt:  time.Now(),
	}

	next := &snapshot{updatedAt: time.Now()}
	status := models.IngestStatusReplaced
	if mode == models.ModeAppend {
		status = models.IngestStatusIngested
		next.chunks = append(append([]models.Chunk(nil), cur.chunks...), chunks...)
		next.sources = append(append([]models.Source(nil), cur.sources...), source)
	} else {
		next.chunks = chunks
		next.sources = []models.Source{source}
	}
	next.matrix = make([][]float32, len(next.chunks))
	for i := range next.chunks {
		next.matrix[i] = next.chunks[i].Embedding
	}

	if err := s.persistSnapshot(next, dims); err != nil {
		return nil, fmt.Errorf("persist %s corpus: %w", s.name, err)
	}
	s.snap.Store(next)

	if s.logger != nil {
		s.logger.Debug("corpus document ingested",
			zap.String("corpus", s.name),
			zap.String("filename", filename),
			zap.String("mode", string(mode)),
			zap.Int("chunks_added", len(chunks)),
			zap.Int("total_chunks", len(next.chunks)))
	}
	return &models.IngestResult{
		ChunksAdded: len(chunks),
		TotalChunks: len(next.chunks),
		Status:      status,
		ContentHash: hash,
	}, nil
}

// ScoredChunk is a retrieval hit.
type ScoredChunk struct {
	Chunk      models.Chunk
	Similarity float64
}

// Search returns the top-k stored chunks with cosine similarity >= floor,
// strictly non-increasing by similarity. Ties prefer complete-section chunks
// over partial ones, then original insertion order. An empty corpus returns
// no results, not an error.
func (s *Store) Search(query []float32, topK int, floor float64) []ScoredChunk {
	snap := s.snap.Load()
	if len(snap.chunks) == 0 || topK <= 0 {
		return nil
	}
	hits := vector.SearchMatrix(query, snap.matrix, len(snap.matrix), floor)
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		ti := snap.chunks[hits[i].Index].SectionType
		tj := snap.chunks[hits[j].Index].SectionType
		return ti == models.SectionComplete && tj == models.SectionPartial
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = ScoredChunk{Chunk: snap.chunks[h.Index], Similarity: h.Score}
	}
	return out
}

// SourceFilename returns the registered filename for a source ID.
func (s *Store) SourceFilename(sourceID string) string {
	snap := s.snap.Load()
	for _, src := range snap.sources {
		if src.ID == sourceID {
			return src.Filename
		}
	}
	return ""
}

// Size returns the number of chunks in the corpus.
func (s *Store) Size() int {
	return len(s.snap.Load().chunks)
}

// Chunks returns the current chunk slice. The slice must not be mutated.
func (s *Store) Chunks() []models.Chunk {
	return s.snap.Load().chunks
}

// Stats returns a snapshot of the corpus for introspection.
func (s *Store) Stats() models.CorpusStats {
	snap := s.snap.Load()
	sources := append([]models.Source(nil), snap.sources...)
	sort.Slice(sources, func(i, j int) bool {
		if !sources[i].IngestedAt.Equal(sources[j].IngestedAt) {
			return sources[i].IngestedAt.Before(sources[j].IngestedAt)
		}
		return sources[i].Filename < sources[j].Filename
	})
	return models.CorpusStats{
		TotalChunks:  len(snap.chunks),
		TotalSources: len(sources),
		Dimensions:   s.embedder.Dimensions(),
		Sources:      sources,
		UpdatedAt:    snap.updatedAt,
	}
}
