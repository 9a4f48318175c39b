// Package classify turns retrieval results into a VALID/REPEALABLE status
// with a confidence score and supporting reasons.
package classify

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/corpus"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/keyword"
	"github.com/clearline/speclens/internal/models"
	"github.com/clearline/speclens/pkg/utils"
)

// Options are the tunable classification thresholds. The decision rule is an
// empirical heuristic, so every threshold is configuration, not a constant.
type Options struct {
	// TopK is how many spec chunks are retrieved per infraction.
	TopK int
	// SimilarityFloor is the minimum cosine similarity for a chunk to count.
	SimilarityFloor float64
	// MinMatches is the corroboration requirement: fewer matches than this
	// can never produce REPEALABLE.
	MinMatches int
	// MinConfidence is the confidence (0-100) the score must exceed for
	// REPEALABLE.
	MinConfidence float64
	// MaxReasons caps how many matched chunks become reason strings.
	MaxReasons int
	// SnippetLen is how many characters of a matched chunk a reason quotes.
	SnippetLen int
}

// DefaultOptions returns the documented default thresholds.
func DefaultOptions() Options {
	return Options{
		TopK:            5,
		SimilarityFloor: 0.6,
		MinMatches:      2,
		MinConfidence:   60,
		MaxReasons:      3,
		SnippetLen:      150,
	}
}

func (o *Options) applyDefaults() {
	def := DefaultOptions()
	if o.TopK <= 0 {
		o.TopK = def.TopK
	}
	if o.SimilarityFloor <= 0 {
		o.SimilarityFloor = def.SimilarityFloor
	}
	if o.MinMatches <= 0 {
		o.MinMatches = def.MinMatches
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = def.MinConfidence
	}
	if o.MaxReasons <= 0 {
		o.MaxReasons = def.MaxReasons
	}
	if o.SnippetLen <= 0 {
		o.SnippetLen = def.SnippetLen
	}
}

// Classifier classifies infractions against a specification corpus.
type Classifier struct {
	store    *corpus.Store
	embedder embedding.Embedder
	overlay  *keyword.Overlay // optional; contributes risk/success annotations
	patterns []keyword.AuditPattern
	opts     Options
	logger   *zap.Logger // optional; when set, logs debug events
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) ClassifierOption {
	return func(c *Classifier) { c.logger = l }
}

// WithOverlay attaches a keyword overlay for auxiliary pattern signals.
func WithOverlay(o *keyword.Overlay, patterns []keyword.AuditPattern) ClassifierOption {
	return func(c *Classifier) {
		c.overlay = o
		c.patterns = patterns
	}
}

// New creates a classifier over the given spec corpus and embedder.
func New(store *corpus.Store, embedder embedding.Embedder, opts Options, options ...ClassifierOption) *Classifier {
	opts.applyDefaults()
	c := &Classifier{store: store, embedder: embedder, opts: opts}
	for _, opt := range options {
		opt(c)
	}
	if c.patterns == nil {
		c.patterns = keyword.DefaultPatterns
	}
	return c
}

// Classify embeds the infraction text, retrieves the top-K spec chunks, and
// applies the decision rule. Fully deterministic for a fixed corpus state and
// input. An empty corpus yields a routine VALID result with zero confidence,
// not an error; provider failures are propagated unchanged.
func (c *Classifier) Classify(ctx context.Context, infraction string) (*models.ClassificationResult, error) {
	result := &models.ClassificationResult{
		InfractionText: infraction,
		Status:         models.StatusValid,
	}
	if c.store.Size() == 0 {
		result.Reasons = []string{"No specification corpus has been learned yet; infraction stands as reported."}
		return result, nil
	}

	queryVec, err := c.embedder.Embed(ctx, infraction)
	if err != nil {
		return nil, fmt.Errorf("embed infraction: %w", err)
	}
	hits := c.store.Search(queryVec, c.opts.TopK, c.opts.SimilarityFloor)

	result.MatchCount = len(hits)
	var sum float64
	for _, h := range hits {
		sum += h.Similarity
		result.MatchedChunks = append(result.MatchedChunks, models.MatchedChunk{
			Text:          h.Chunk.Text,
			SourceFile:    c.store.SourceFilename(h.Chunk.SourceID),
			SectionHeader: h.Chunk.SectionHeader,
			SectionType:   h.Chunk.SectionType,
			Similarity:    h.Similarity,
		})
	}
	result.Confidence = clamp(sum/float64(c.opts.TopK)*100, 0, 100)
	if result.MatchCount >= c.opts.MinMatches && result.Confidence > c.opts.MinConfidence {
		result.Status = models.StatusRepealable
	}
	result.Reasons = c.buildReasons(hits)
	result.Reasons = append(result.Reasons, numericDisagreements(infraction, hits)...)

	if c.overlay != nil {
		success, risk, sigErr := c.overlay.Signals(ctx, infraction, c.patterns)
		if sigErr != nil {
			// Auxiliary signal only; classification proceeds on the semantic result.
			if c.logger != nil {
				c.logger.Debug("keyword overlay unavailable", zap.Error(sigErr))
			}
		} else {
			result.SuccessFactors = success
			result.RiskFactors = risk
		}
	}

	if c.logger != nil {
		c.logger.Debug("infraction classified",
			zap.String("status", string(result.Status)),
			zap.Float64("confidence", result.Confidence),
			zap.Int("match_count", result.MatchCount))
	}
	return result, nil
}

// buildReasons renders the top matched chunks as human-readable explanations.
func (c *Classifier) buildReasons(hits []corpus.ScoredChunk) []string {
	if len(hits) == 0 {
		return []string{"No strong spec matches found; infraction appears valid."}
	}
	n := len(hits)
	if n > c.opts.MaxReasons {
		n = c.opts.MaxReasons
	}
	reasons := make([]string, 0, n)
	for _, h := range hits[:n] {
		reasons = append(reasons, fmt.Sprintf("Spec match (similarity %d%%): %s",
			int(math.Round(h.Similarity*100)), utils.Truncate(h.Chunk.Text, c.opts.SnippetLen)))
	}
	return reasons
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
