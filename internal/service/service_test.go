package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clearline/speclens/internal/config"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/models"
)

// Loose thresholds so the deterministic mock embedder, where only identical
// texts score near 1.0, can drive the repealable path.
func testConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Storage.SpecCorpusPath = filepath.Join(dir, "spec_corpus.json")
	cfg.Storage.PricingCorpusPath = filepath.Join(dir, "pricing_corpus.json")
	cfg.Storage.PricingDBPath = filepath.Join(dir, "pricing.db")
	cfg.Embedding.CacheSize = 100
	cfg.Classifier.TopK = 1
	cfg.Classifier.SimilarityFloor = 0.6
	cfg.Classifier.MinMatches = 1
	cfg.Classifier.MinConfidence = 10
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc, err := New(cfg, embedding.NewMockEmbedder(64))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

const specDoc = "Work performed under TAG-4 requires replacement of damaged poles at contractor expense."
const pricingDoc = "TAG-4 | Replace damaged pole | $850.00 | per unit"

func TestServiceIngestAndStats(t *testing.T) {
	svc := newTestService(t, testConfig(t.TempDir()))
	ctx := context.Background()

	res, err := svc.IngestSpec(ctx, specDoc, "spec.txt", models.ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.IngestStatusIngested || res.ChunksAdded == 0 {
		t.Errorf("result = %+v", res)
	}

	dup, err := svc.IngestSpec(ctx, specDoc, "spec-copy.txt", models.ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if dup.Status != models.IngestStatusAlreadyProcessed || dup.ChunksAdded != 0 {
		t.Errorf("duplicate result = %+v", dup)
	}

	if _, err := svc.IngestPricing(ctx, pricingDoc, "pricing.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}

	stats := svc.CorpusStats()
	if stats.Spec.TotalSources != 1 || stats.Spec.TotalChunks == 0 {
		t.Errorf("spec stats = %+v", stats.Spec)
	}
	if stats.Pricing.TotalSources != 1 {
		t.Errorf("pricing stats = %+v", stats.Pricing)
	}
	if stats.Cache.Capacity != 100 {
		t.Errorf("cache capacity = %d, want 100", stats.Cache.Capacity)
	}
}

func TestServiceClassifyEmptyCorpus(t *testing.T) {
	svc := newTestService(t, testConfig(t.TempDir()))

	res, err := svc.ClassifyInfraction(context.Background(), "pole clearance too low")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusValid || res.Confidence != 0 {
		t.Errorf("status/confidence = %q/%f", res.Status, res.Confidence)
	}
}

func TestServiceClassifyRepealableWithCostImpact(t *testing.T) {
	svc := newTestService(t, testConfig(t.TempDir()))
	ctx := context.Background()

	if _, err := svc.IngestSpec(ctx, specDoc, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IngestPricing(ctx, pricingDoc, "pricing.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}

	// The mock embedder maps identical text to identical vectors, so the
	// infraction matches its own spec chunk with similarity ~1.
	res, err := svc.ClassifyInfraction(ctx, specDoc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusRepealable {
		t.Fatalf("status = %q (confidence %f, matches %d), want REPEALABLE",
			res.Status, res.Confidence, res.MatchCount)
	}
	if res.Confidence < 99 {
		t.Errorf("confidence = %f, want ~100", res.Confidence)
	}
	if res.CostImpact == nil {
		t.Fatal("no cost impact attached")
	}
	// The infraction carries a literal TAG-4, resolved by direct lookup.
	if res.CostImpact.RefCode != "TAG-4" {
		t.Errorf("ref code = %q, want TAG-4", res.CostImpact.RefCode)
	}
	if res.CostImpact.BaseCost == nil || *res.CostImpact.BaseCost != 850 {
		t.Errorf("base cost = %v, want 850", res.CostImpact.BaseCost)
	}
}

func TestServiceRepealableWithoutPricingGetsAdvisory(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.Storage.PricingDBPath = "" // no reference book
	svc := newTestService(t, cfg)
	ctx := context.Background()

	doc := "Grounding conductors shall be bonded at every pole."
	if _, err := svc.IngestSpec(ctx, doc, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ClassifyInfraction(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.StatusRepealable {
		t.Fatalf("status = %q, want REPEALABLE", res.Status)
	}
	if res.CostImpact != nil {
		t.Errorf("cost impact = %+v, want nil with empty pricing corpus", res.CostImpact)
	}
	advisory := false
	for _, r := range res.Reasons {
		if strings.Contains(r, "cost impact unavailable") {
			advisory = true
		}
	}
	if !advisory {
		t.Errorf("missing advisory reason: %v", res.Reasons)
	}
}

func TestServicePersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)

	first, err := New(cfg, embedding.NewMockEmbedder(64))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := first.IngestSpec(ctx, specDoc, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}
	want := first.CorpusStats().Spec
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second := newTestService(t, cfg)
	got := second.CorpusStats().Spec
	if got.TotalChunks != want.TotalChunks || got.TotalSources != want.TotalSources {
		t.Errorf("stats after restart = %+v, want %+v", got, want)
	}

	// A persisted document is still deduplicated after restart.
	res, err := second.IngestSpec(ctx, specDoc, "spec.txt", models.ModeAppend)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.IngestStatusAlreadyProcessed {
		t.Errorf("status = %q, want already_processed", res.Status)
	}
}

func TestServiceKeywordSignals(t *testing.T) {
	svc := newTestService(t, testConfig(t.TempDir()))
	ctx := context.Background()

	doc := "Minimum clearance over streets shall be maintained above the roadway."
	if _, err := svc.IngestSpec(ctx, doc, "spec.txt", models.ModeAppend); err != nil {
		t.Fatal(err)
	}

	res, err := svc.ClassifyInfraction(ctx, doc)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range res.SuccessFactors {
		if f == "clearance_proper" {
			found = true
		}
	}
	if !found {
		t.Errorf("success factors = %v, want clearance_proper", res.SuccessFactors)
	}
}
