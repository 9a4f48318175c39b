package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearline/speclens/internal/chunker"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/models"
)

const specText = "1. CLEARANCES\n" +
	"Minimum clearance over streets shall be 18 feet. Crossings require additional clearance above the roadway surface at all times.\n" +
	"\n" +
	"2. GROUNDING\n" +
	"All equipment enclosures shall be grounded. Ground rods shall be driven to full depth at each pole location.\n"

func newTestStore(t *testing.T, path string) *Store {
	t.Helper()
	return NewStore("spec", path, chunker.New(chunker.SpecOptions()), embedding.NewMockEmbedder(32))
}

func TestIngestAppend(t *testing.T) {
	s := newTestStore(t, "")
	res, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.IngestStatusIngested {
		t.Errorf("status = %q", res.Status)
	}
	if res.ChunksAdded == 0 || res.ChunksAdded != res.TotalChunks {
		t.Errorf("chunks added/total = %d/%d", res.ChunksAdded, res.TotalChunks)
	}
	if res.ContentHash != ContentHash([]byte(specText)) {
		t.Errorf("content hash mismatch")
	}
	if s.Size() != res.TotalChunks {
		t.Errorf("size = %d, want %d", s.Size(), res.TotalChunks)
	}
}

func TestIngestDuplicateIsIdempotent(t *testing.T) {
	s := newTestStore(t, "")
	first, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Ingest(context.Background(), specText, "copy-of-spec.txt", models.ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if second.Status != models.IngestStatusAlreadyProcessed {
		t.Errorf("status = %q, want already_processed", second.Status)
	}
	if second.ChunksAdded != 0 {
		t.Errorf("chunks added = %d, want 0", second.ChunksAdded)
	}
	if second.TotalChunks != first.TotalChunks {
		t.Errorf("total chunks changed: %d -> %d", first.TotalChunks, second.TotalChunks)
	}
	if stats := s.Stats(); stats.TotalSources != 1 {
		t.Errorf("total sources = %d, want 1", stats.TotalSources)
	}
}

func TestIngestReplaceDropsPriorSources(t *testing.T) {
	s := newTestStore(t, "")
	if _, err := s.Ingest(context.Background(), specText, "old.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	other := "Guy wires shall be insulated where they pass within eight feet of any conductor on the structure."
	res, err := s.Ingest(context.Background(), other, "new.txt", models.ModeReplace)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.IngestStatusReplaced {
		t.Errorf("status = %q, want replaced", res.Status)
	}
	stats := s.Stats()
	if stats.TotalSources != 1 {
		t.Errorf("total sources = %d, want 1", stats.TotalSources)
	}
	if stats.Sources[0].Filename != "new.txt" {
		t.Errorf("surviving source = %q, want new.txt", stats.Sources[0].Filename)
	}
	if s.Size() != res.TotalChunks {
		t.Errorf("size = %d, want %d", s.Size(), res.TotalChunks)
	}
}

func TestIngestEmptyTextFailsWithoutMutation(t *testing.T) {
	s := newTestStore(t, "")
	if _, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	before := s.Size()
	_, err := s.Ingest(context.Background(), "   \n  ", "blank.txt", models.ModeAppend)
	if !errors.Is(err, ErrExtractionEmpty) {
		t.Fatalf("err = %v, want ErrExtractionEmpty", err)
	}
	if s.Size() != before {
		t.Errorf("corpus mutated by failed ingest: %d -> %d", before, s.Size())
	}
	if stats := s.Stats(); stats.TotalSources != 1 {
		t.Errorf("total sources = %d, want 1", stats.TotalSources)
	}
}

func TestSearchEmptyCorpus(t *testing.T) {
	s := newTestStore(t, "")
	if hits := s.Search([]float32{1, 0}, 5, 0); hits != nil {
		t.Errorf("expected no hits on empty corpus, got %d", len(hits))
	}
}

func TestSearchReturnsIngestedContent(t *testing.T) {
	s := newTestStore(t, "")
	emb := embedding.NewMockEmbedder(32)
	if _, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	// The mock embedder is deterministic, so querying with a stored chunk's
	// own text retrieves that chunk with similarity ~1.
	chunkText := s.Chunks()[0].Text
	query, err := emb.Embed(context.Background(), chunkText)
	if err != nil {
		t.Fatal(err)
	}
	hits := s.Search(query, 1, 0.99)
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	if hits[0].Chunk.Text != chunkText {
		t.Errorf("retrieved wrong chunk")
	}
	if hits[0].Similarity < 0.99 {
		t.Errorf("similarity = %f, want ~1", hits[0].Similarity)
	}
}

func TestSearchTiePrefersCompleteSection(t *testing.T) {
	s := newTestStore(t, "")
	vec := []float32{1, 0}
	snap := &snapshot{
		chunks: []models.Chunk{
			{ID: "c0", Text: "partial first", SectionType: models.SectionPartial, Embedding: vec},
			{ID: "c1", Text: "complete second", SectionType: models.SectionComplete, Embedding: vec},
		},
		matrix:    [][]float32{vec, vec},
		updatedAt: time.Now(),
	}
	s.snap.Store(snap)

	hits := s.Search(vec, 2, 0.5)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Chunk.ID != "c1" {
		t.Errorf("first hit = %q, want the complete-section chunk", hits[0].Chunk.ID)
	}
}

func TestSourceFilename(t *testing.T) {
	s := newTestStore(t, "")
	if _, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	id := s.Chunks()[0].SourceID
	if got := s.SourceFilename(id); got != "spec.txt" {
		t.Errorf("filename = %q, want spec.txt", got)
	}
	if got := s.SourceFilename("nope"); got != "" {
		t.Errorf("unknown source returned %q", got)
	}
}

func TestPersistLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_corpus.json")
	s := newTestStore(t, path)
	if _, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	wantStats := s.Stats()

	loaded := newTestStore(t, path)
	if err := loaded.Load(); err != nil {
		t.Fatal(err)
	}
	gotStats := loaded.Stats()
	if gotStats.TotalChunks != wantStats.TotalChunks {
		t.Errorf("chunks = %d, want %d", gotStats.TotalChunks, wantStats.TotalChunks)
	}
	if gotStats.TotalSources != wantStats.TotalSources {
		t.Errorf("sources = %d, want %d", gotStats.TotalSources, wantStats.TotalSources)
	}

	// Retrieval behaves identically after reload.
	emb := embedding.NewMockEmbedder(32)
	query, _ := emb.Embed(context.Background(), s.Chunks()[0].Text)
	before := s.Search(query, 3, 0)
	after := loaded.Search(query, 3, 0)
	if len(before) != len(after) {
		t.Fatalf("hit counts differ: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Chunk.ID != after[i].Chunk.ID {
			t.Errorf("hit %d differs after reload", i)
		}
	}
}

func TestLoadMissingFileLeavesCorpusEmpty(t *testing.T) {
	s := newTestStore(t, filepath.Join(t.TempDir(), "does_not_exist.json"))
	if err := s.Load(); err != nil {
		t.Fatalf("missing blob should not error: %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("size = %d, want 0", s.Size())
	}
}

func TestLoadDimensionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec_corpus.json")
	s := newTestStore(t, path)
	if _, err := s.Ingest(context.Background(), specText, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}

	other := NewStore("spec", path, chunker.New(chunker.SpecOptions()), embedding.NewMockEmbedder(16))
	err := other.Load()
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
	if other.Size() != 0 {
		t.Errorf("failed load mutated the corpus")
	}
}

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash([]byte("same bytes"))
	b := ContentHash([]byte("same bytes"))
	c := ContentHash([]byte("other bytes"))
	if a != b {
		t.Error("hash not deterministic")
	}
	if a == c {
		t.Error("different content hashed equal")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}
