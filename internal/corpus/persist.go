package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/models"
)

// blob is the on-disk corpus layout: chunk texts, the embedding matrix
// (row-parallel to chunks), the source registry, and the dimensionality the
// matrix was written with.
type blob struct {
	Chunks     []models.Chunk  `json:"chunks"`
	Embeddings [][]float32     `json:"embeddings"`
	Sources    []models.Source `json:"sources"`
	Dimensions int             `json:"dimensionality"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// persistSnapshot writes snap as one blob via write-new-then-swap so a crash
// mid-write cannot corrupt the previously persisted state.
func (s *Store) persistSnapshot(snap *snapshot, dims int) error {
	if s.path == "" {
		return nil
	}
	b := blob{
		Chunks:     make([]models.Chunk, len(snap.chunks)),
		Embeddings: snap.matrix,
		Sources:    snap.sources,
		Dimensions: dims,
		UpdatedAt:  snap.updatedAt,
	}
	for i, ch := range snap.chunks {
		ch.Embedding = nil // matrix carries the vectors
		b.Chunks[i] = ch
	}
	data, err := json.Marshal(&b)
	if err != nil {
		return fmt.Errorf("marshal corpus: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create corpus dir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write corpus blob: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("swap corpus blob: %w", err)
	}
	if s.logger != nil {
		s.logger.Debug("corpus persisted",
			zap.String("corpus", s.name),
			zap.String("path", s.path),
			zap.Int("chunks", len(snap.chunks)))
	}
	return nil
}

// Persist writes the current corpus state to disk.
func (s *Store) Persist() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.persistSnapshot(s.snap.Load(), s.embedder.Dimensions())
}

// Load replaces the in-memory corpus with the persisted blob at the store's
// path. A missing file leaves the corpus empty and returns nil. A blob whose
// recorded dimensionality disagrees with the active embedder fails with
// ErrDimensionMismatch; it cannot be silently migrated.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read corpus blob: %w", err)
	}
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("parse corpus blob: %w", err)
	}
	dims := s.embedder.Dimensions()
	if b.Dimensions != dims {
		return fmt.Errorf("%w: %s corpus persisted with %d, embedder produces %d",
			ErrDimensionMismatch, s.name, b.Dimensions, dims)
	}
	if len(b.Embeddings) != len(b.Chunks) {
		return fmt.Errorf("corrupt corpus blob: %d chunks but %d embedding rows", len(b.Chunks), len(b.Embeddings))
	}
	for i := range b.Chunks {
		if len(b.Embeddings[i]) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(b.Embeddings[i]), dims)
		}
		b.Chunks[i].Embedding = b.Embeddings[i]
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.snap.Store(&snapshot{
		chunks:    b.Chunks,
		matrix:    b.Embeddings,
		sources:   b.Sources,
		updatedAt: b.UpdatedAt,
	})
	if s.logger != nil {
		s.logger.Debug("corpus loaded",
			zap.String("corpus", s.name),
			zap.String("path", s.path),
			zap.Int("chunks", len(b.Chunks)),
			zap.Int("sources", len(b.Sources)))
	}
	return nil
}
