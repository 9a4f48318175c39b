// Package keyword provides a Bleve-backed keyword overlay over spec chunks.
// It contributes auxiliary risk/success annotations to classification results
// and never participates in the similarity-based status decision.
package keyword

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/clearline/speclens/internal/models"
)

// Overlay is an in-memory keyword index over the current spec chunks. It is
// derived data: rebuilt from the corpus after every ingest and at load.
// Rebuild may run while classifications are reading, so the index handle is
// guarded by a read/write lock.
type Overlay struct {
	mu    sync.RWMutex
	index bleve.Index
}

// chunkDoc is the indexed shape of a chunk.
type chunkDoc struct {
	Content string `json:"content"`
	Section string `json:"section"`
}

// NewOverlay creates an empty in-memory keyword overlay.
func NewOverlay() (*Overlay, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &Overlay{index: index}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so that exact audit
	// terms like "grounding" match without stem collisions.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("section", textFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping
	return im
}

// Rebuild replaces the overlay contents with the given chunks.
func (o *Overlay) Rebuild(ctx context.Context, chunks []models.Chunk) error {
	fresh, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return fmt.Errorf("failed to create keyword index: %w", err)
	}
	batch := fresh.NewBatch()
	for _, ch := range chunks {
		doc := chunkDoc{Content: ch.Text, Section: ch.SectionHeader}
		if err := batch.Index(ch.ID, doc); err != nil {
			return fmt.Errorf("failed to batch chunk %s: %w", ch.ID, err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to index chunks: %w", err)
	}
	o.mu.Lock()
	old := o.index
	o.index = fresh
	o.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// MatchCount returns the number of chunks matching the query terms.
func (o *Overlay) MatchCount(ctx context.Context, query string) (int, error) {
	q := bleve.NewMatchQuery(query)
	search := bleve.NewSearchRequest(q)
	search.Size = 0
	o.mu.RLock()
	defer o.mu.RUnlock()
	results, err := o.index.Search(search)
	if err != nil {
		return 0, fmt.Errorf("keyword search failed: %w", err)
	}
	return int(results.Total), nil
}

// Close releases the underlying index.
func (o *Overlay) Close() error {
	o.mu.Lock()
	index := o.index
	o.index = nil
	o.mu.Unlock()
	if index == nil {
		return nil
	}
	return index.Close()
}
