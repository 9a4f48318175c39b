package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/clearline/speclens/internal/chunker"
	"github.com/clearline/speclens/internal/corpus"
	"github.com/clearline/speclens/internal/models"
)

// cannedEmbedder returns fixed vectors per text so tests control similarities
// exactly. Unknown texts are an error, which catches accidental queries.
type cannedEmbedder struct {
	dims int
	vecs map[string][]float32
	err  error
}

func (e *cannedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	v, ok := e.vecs[text]
	if !ok {
		return nil, fmt.Errorf("no canned vector for %q", text)
	}
	return v, nil
}

func (e *cannedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *cannedEmbedder) Dimensions() int { return e.dims }
func (e *cannedEmbedder) Close() error    { return nil }

// unit returns a unit vector at angle theta in the first two dimensions, so
// cosine similarity between two of them is cos(theta1 - theta2).
func unit(theta float64) []float32 {
	return []float32{float32(math.Cos(theta)), float32(math.Sin(theta)), 0, 0}
}

func buildCorpus(t *testing.T, emb *cannedEmbedder, docs map[string]string) *corpus.Store {
	t.Helper()
	store := corpus.NewStore("spec", "", chunker.New(chunker.SpecOptions()), emb)
	for filename, text := range docs {
		if _, err := store.Ingest(context.Background(), text, filename, models.ModeAppend); err != nil {
			t.Fatalf("ingest %s: %v", filename, err)
		}
	}
	return store
}

func TestClassifyEmptyCorpusIsValid(t *testing.T) {
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{}}
	store := corpus.NewStore("spec", "", chunker.New(chunker.SpecOptions()), emb)
	c := New(store, emb, DefaultOptions())

	res, err := c.Classify(context.Background(), "anything at all")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusValid {
		t.Errorf("status = %q, want VALID", res.Status)
	}
	if res.Confidence != 0 || res.MatchCount != 0 {
		t.Errorf("confidence/matches = %f/%d, want 0/0", res.Confidence, res.MatchCount)
	}
	if len(res.Reasons) != 1 || !strings.Contains(res.Reasons[0], "No specification corpus") {
		t.Errorf("reasons = %v", res.Reasons)
	}
}

func TestClassifyConfidenceAveragesOverTopK(t *testing.T) {
	query := "infraction text"
	docA := "alpha spec rule."
	docB := "beta spec rule."
	docC := "gamma spec rule."
	theta := math.Acos(0.9)
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{
		query: unit(0),
		docA:  unit(theta),
		docB:  unit(-theta),
		docC:  unit(math.Acos(0.3)), // below the floor, must not count
	}}
	store := buildCorpus(t, emb, map[string]string{"a.txt": docA, "b.txt": docB, "c.txt": docC})
	c := New(store, emb, Options{TopK: 5, SimilarityFloor: 0.6, MinMatches: 2, MinConfidence: 60})

	res, err := c.Classify(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if res.MatchCount != 2 {
		t.Fatalf("match count = %d, want 2", res.MatchCount)
	}
	// Two matches at 0.9 averaged over K=5: (0.9+0.9)/5*100 = 36.
	if math.Abs(res.Confidence-36) > 0.5 {
		t.Errorf("confidence = %f, want ~36", res.Confidence)
	}
	if res.Status != models.StatusValid {
		t.Errorf("status = %q, want VALID (confidence below threshold)", res.Status)
	}
}

func TestClassifyRepealable(t *testing.T) {
	query := "pole attachment lacks required clearance"
	docA := "alpha spec rule."
	docB := "beta spec rule."
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{
		query: unit(0),
		docA:  unit(math.Acos(0.95)),
		docB:  unit(-math.Acos(0.85)),
	}}
	store := buildCorpus(t, emb, map[string]string{"a.txt": docA, "b.txt": docB})
	c := New(store, emb, Options{TopK: 2, SimilarityFloor: 0.6, MinMatches: 2, MinConfidence: 60})

	res, err := c.Classify(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusRepealable {
		t.Fatalf("status = %q, want REPEALABLE (confidence %f, matches %d)",
			res.Status, res.Confidence, res.MatchCount)
	}
	// (0.95+0.85)/2*100 = 90.
	if math.Abs(res.Confidence-90) > 0.5 {
		t.Errorf("confidence = %f, want ~90", res.Confidence)
	}
	if len(res.MatchedChunks) != 2 {
		t.Fatalf("matched chunks = %d, want 2", len(res.MatchedChunks))
	}
	if res.MatchedChunks[0].SourceFile != "a.txt" {
		t.Errorf("best match source = %q, want a.txt", res.MatchedChunks[0].SourceFile)
	}
	if res.MatchedChunks[0].Similarity < res.MatchedChunks[1].Similarity {
		t.Error("matched chunks not ordered by similarity")
	}
}

func TestClassifyReasonFormat(t *testing.T) {
	query := "query"
	doc := "Minimum clearance over streets shall be maintained at all times."
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{
		query: unit(0),
		doc:   unit(math.Acos(0.9)),
	}}
	store := buildCorpus(t, emb, map[string]string{"spec.txt": doc})
	c := New(store, emb, Options{TopK: 5, SimilarityFloor: 0.6, MinMatches: 2, MinConfidence: 60})

	res, err := c.Classify(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Reasons) == 0 {
		t.Fatal("no reasons")
	}
	want := "Spec match (similarity 90%): " + doc
	if res.Reasons[0] != want {
		t.Errorf("reason = %q\nwant     %q", res.Reasons[0], want)
	}
}

func TestClassifyNoMatchesAboveFloor(t *testing.T) {
	query := "query"
	doc := "unrelated content entirely."
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{
		query: unit(0),
		doc:   unit(math.Pi / 2), // cosine 0, below floor
	}}
	store := buildCorpus(t, emb, map[string]string{"spec.txt": doc})
	c := New(store, emb, DefaultOptions())

	res, err := c.Classify(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusValid || res.MatchCount != 0 {
		t.Errorf("status/matches = %q/%d, want VALID/0", res.Status, res.MatchCount)
	}
	if len(res.Reasons) != 1 || !strings.Contains(res.Reasons[0], "No strong spec matches") {
		t.Errorf("reasons = %v", res.Reasons)
	}
}

func TestClassifyPropagatesEmbedderError(t *testing.T) {
	doc := "some spec text."
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{doc: unit(0)}}
	store := buildCorpus(t, emb, map[string]string{"spec.txt": doc})

	emb.err = errors.New("provider down")
	c := New(store, emb, DefaultOptions())
	if _, err := c.Classify(context.Background(), "query"); err == nil {
		t.Fatal("expected error from embedder")
	}
}

func TestClassifyFlagsNumericDisagreement(t *testing.T) {
	query := "Pole clearance measured at only 16 feet over the roadway."
	doc := "Minimum clearance over streets shall be 18 feet."
	emb := &cannedEmbedder{dims: 4, vecs: map[string][]float32{
		query: unit(0),
		doc:   unit(math.Acos(0.9)),
	}}
	store := buildCorpus(t, emb, map[string]string{"spec.txt": doc})
	c := New(store, emb, DefaultOptions())

	res, err := c.Classify(context.Background(), query)
	if err != nil {
		t.Fatal(err)
	}
	if res.MatchCount < 1 {
		t.Fatalf("expected at least one match, got %d", res.MatchCount)
	}
	found := false
	for _, r := range res.Reasons {
		if strings.Contains(r, "Needs review") &&
			strings.Contains(r, "16 feet") && strings.Contains(r, "18 feet") {
			found = true
		}
	}
	if !found {
		t.Errorf("no needs-review reason in %v", res.Reasons)
	}
}

func TestExtractMeasurements(t *testing.T) {
	ms := extractMeasurements("Clearance of 18 feet and separation of 40 inches, conductor at 4.5 m.")
	if len(ms) != 3 {
		t.Fatalf("got %d measurements: %v", len(ms), ms)
	}
	if ms[0].value != 18 || ms[0].unit != "feet" {
		t.Errorf("ms[0] = %+v", ms[0])
	}
	if ms[1].value != 40 || ms[1].unit != "inches" {
		t.Errorf("ms[1] = %+v", ms[1])
	}
	if ms[2].value != 4.5 || ms[2].unit != "meters" {
		t.Errorf("ms[2] = %+v", ms[2])
	}
}

func TestNumericDisagreementsSameValueSilent(t *testing.T) {
	hits := []corpus.ScoredChunk{{Chunk: models.Chunk{Text: "shall be 18 feet"}}}
	if got := numericDisagreements("measured 18 feet", hits); len(got) != 0 {
		t.Errorf("agreeing values flagged: %v", got)
	}
}
