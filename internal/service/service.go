// Package service exposes the four-operation classification core: spec
// ingestion, pricing ingestion, infraction classification, and corpus stats.
// One Service instance owns both corpora, the embedder, and the overlays for
// the life of the process; there is no package-level state.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/chunker"
	"github.com/clearline/speclens/internal/classify"
	"github.com/clearline/speclens/internal/config"
	"github.com/clearline/speclens/internal/corpus"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/keyword"
	"github.com/clearline/speclens/internal/models"
	"github.com/clearline/speclens/internal/pricing"
)

// Service is the synchronous classification core. Ingest operations are
// serialized per corpus; classification reads may run concurrently.
type Service struct {
	embedder     *embedding.CachedEmbedder
	specStore    *corpus.Store
	pricingStore *corpus.Store
	overlay      *keyword.Overlay
	classifier   *classify.Classifier
	costOverlay  *pricing.Overlay
	refBook      *pricing.RefBook // nil when no pricing db path is configured
	logger       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a logger for debug output across all owned components.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New builds the service from configuration and an embedding backend, then
// loads both persisted corpora. A persisted corpus whose dimensionality does
// not match the backend fails construction; it cannot be silently migrated.
func New(cfg *config.Config, backend embedding.Embedder, opts ...Option) (*Service, error) {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}

	var embOpts []embedding.CachedEmbedderOption
	var storeOpts []corpus.StoreOption
	var clsOpts []classify.ClassifierOption
	var costOpts []pricing.OverlayOption
	if s.logger != nil {
		embOpts = append(embOpts, embedding.WithLogger(s.logger))
		storeOpts = append(storeOpts, corpus.WithLogger(s.logger))
		clsOpts = append(clsOpts, classify.WithLogger(s.logger))
		costOpts = append(costOpts, pricing.WithLogger(s.logger))
	}

	s.embedder = embedding.NewCachedEmbedder(backend, cfg.Embedding.CacheSize, embedding.BatchOptions{
		MaxBatchSize:      cfg.Embedding.MaxBatchSize,
		MinBatchSize:      cfg.Embedding.MinBatchSize,
		MemorySoftLimitMB: cfg.Embedding.MemorySoftLimitMB,
	}, embOpts...)

	specChunker := chunker.New(chunkOptions(cfg.Chunking.Spec))
	pricingChunker := chunker.New(chunkOptions(cfg.Chunking.Pricing))
	s.specStore = corpus.NewStore("spec", cfg.Storage.SpecCorpusPath, specChunker, s.embedder, storeOpts...)
	s.pricingStore = corpus.NewStore("pricing", cfg.Storage.PricingCorpusPath, pricingChunker, s.embedder, storeOpts...)
	if err := s.specStore.Load(); err != nil {
		return nil, fmt.Errorf("load spec corpus: %w", err)
	}
	if err := s.pricingStore.Load(); err != nil {
		return nil, fmt.Errorf("load pricing corpus: %w", err)
	}

	overlay, err := keyword.NewOverlay()
	if err != nil {
		return nil, fmt.Errorf("create keyword overlay: %w", err)
	}
	s.overlay = overlay
	if err := s.overlay.Rebuild(context.Background(), s.specStore.Chunks()); err != nil {
		return nil, fmt.Errorf("rebuild keyword overlay: %w", err)
	}

	if cfg.Storage.PricingDBPath != "" {
		book, err := pricing.NewRefBook(cfg.Storage.PricingDBPath)
		if err != nil {
			return nil, fmt.Errorf("open pricing reference book: %w", err)
		}
		s.refBook = book
		costOpts = append(costOpts, pricing.WithRefBook(book))
	}

	s.classifier = classify.New(s.specStore, s.embedder, classify.Options{
		TopK:            cfg.Classifier.TopK,
		SimilarityFloor: cfg.Classifier.SimilarityFloor,
		MinMatches:      cfg.Classifier.MinMatches,
		MinConfidence:   cfg.Classifier.MinConfidence,
	}, append(clsOpts, classify.WithOverlay(s.overlay, keyword.DefaultPatterns))...)

	s.costOverlay = pricing.NewOverlay(s.pricingStore, s.embedder, pricing.Options{
		TopK:                cfg.Pricing.TopK,
		SimilarityFloor:     cfg.Pricing.SimilarityFloor,
		DefaultHours:        cfg.Pricing.DefaultHours,
		DefaultAdderPercent: cfg.Pricing.DefaultAdderPercent,
	}, costOpts...)

	return s, nil
}

func chunkOptions(s config.ChunkSizing) chunker.Options {
	return chunker.Options{
		OptimalSize:  s.OptimalSize,
		MaxSize:      s.MaxSize,
		MinSize:      s.MinSize,
		OverlapRatio: s.OverlapRatio,
	}
}

// IngestSpec ingests a specification document and refreshes the keyword
// overlay on success.
func (s *Service) IngestSpec(ctx context.Context, rawText, filename string, mode models.IngestMode) (*models.IngestResult, error) {
	result, err := s.specStore.Ingest(ctx, rawText, filename, mode)
	if err != nil {
		return nil, err
	}
	if result.Status != models.IngestStatusAlreadyProcessed {
		if err := s.overlay.Rebuild(ctx, s.specStore.Chunks()); err != nil {
			// The corpus mutation already committed; the overlay is auxiliary.
			if s.logger != nil {
				s.logger.Warn("keyword overlay rebuild failed", zap.Error(err))
			}
		}
	}
	return result, nil
}

// IngestPricing ingests a pricing document and registers its structured
// entries in the reference book for direct code lookup.
func (s *Service) IngestPricing(ctx context.Context, rawText, filename string, mode models.IngestMode) (*models.IngestResult, error) {
	result, err := s.pricingStore.Ingest(ctx, rawText, filename, mode)
	if err != nil {
		return nil, err
	}
	if s.refBook != nil && result.Status != models.IngestStatusAlreadyProcessed {
		entries := pricing.ParseEntries(rawText)
		if mode == models.ModeReplace {
			err = s.refBook.ReplaceAll(ctx, entries)
		} else {
			err = s.refBook.Upsert(ctx, entries)
		}
		if err != nil {
			return nil, fmt.Errorf("update pricing reference book: %w", err)
		}
	}
	return result, nil
}

// ClassifyInfraction classifies infraction text against the spec corpus and,
// when the finding is repealable, attaches a cost estimate with the default
// labor-hours assumption.
func (s *Service) ClassifyInfraction(ctx context.Context, text string) (*models.ClassificationResult, error) {
	return s.ClassifyInfractionWithHours(ctx, text, 0)
}

// ClassifyInfractionWithHours is ClassifyInfraction with a caller-supplied
// labor-hours estimate for per-hour rates. hoursEstimate <= 0 uses the
// configured default and records a note.
func (s *Service) ClassifyInfractionWithHours(ctx context.Context, text string, hoursEstimate float64) (*models.ClassificationResult, error) {
	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	if result.Status != models.StatusRepealable {
		return result, nil
	}
	impact, err := s.costOverlay.EstimateCost(ctx, text, hoursEstimate)
	if err != nil {
		return nil, err
	}
	if impact == nil {
		result.Reasons = append(result.Reasons,
			"No pricing entry cleared the similarity floor; cost impact unavailable.")
		return result, nil
	}
	result.CostImpact = impact
	return result, nil
}

// CorpusStats returns both corpora plus the embedding cache counters.
func (s *Service) CorpusStats() *models.ServiceStats {
	return &models.ServiceStats{
		Spec:    s.specStore.Stats(),
		Pricing: s.pricingStore.Stats(),
		Cache:   s.embedder.CacheStats(),
	}
}

// Close releases the embedder, the keyword overlay, and the reference book.
func (s *Service) Close() error {
	var first error
	if err := s.overlay.Close(); err != nil && first == nil {
		first = err
	}
	if s.refBook != nil {
		if err := s.refBook.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := s.embedder.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
