package pricing

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/corpus"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/models"
)

// Options are the tunable cost-estimation parameters.
type Options struct {
	// TopK is how many pricing chunks are retrieved per estimate.
	TopK int
	// SimilarityFloor is the minimum similarity for a pricing match.
	SimilarityFloor float64
	// DefaultHours is assumed for per_hour rates when the caller supplies none.
	DefaultHours float64
	// DefaultAdderPercent is assumed for percentage adders missing a percent.
	DefaultAdderPercent float64
}

// DefaultOptions returns the documented estimation defaults.
func DefaultOptions() Options {
	return Options{
		TopK:                5,
		SimilarityFloor:     0.6,
		DefaultHours:        8,
		DefaultAdderPercent: 5,
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
	if o.DefaultHours <= 0 {
		o.DefaultHours = def.DefaultHours
	}
	if o.DefaultAdderPercent <= 0 {
		o.DefaultAdderPercent = def.DefaultAdderPercent
	}
}

// Overlay estimates the monetary impact of a repealable finding against the
// pricing corpus, with a direct reference-code path through the RefBook.
type Overlay struct {
	store    *corpus.Store
	book     *RefBook // optional; nil disables the direct-lookup path
	embedder embedding.Embedder
	opts     Options
	logger   *zap.Logger
}

// OverlayOption configures an Overlay.
type OverlayOption func(*Overlay)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) OverlayOption {
	return func(o *Overlay) { o.logger = l }
}

// WithRefBook attaches the sqlite reference book for direct code lookup.
func WithRefBook(book *RefBook) OverlayOption {
	return func(o *Overlay) { o.book = book }
}

// NewOverlay creates a cost overlay over the pricing corpus.
func NewOverlay(store *corpus.Store, embedder embedding.Embedder, opts Options, options ...OverlayOption) *Overlay {
	opts.applyDefaults()
	o := &Overlay{store: store, embedder: embedder, opts: opts}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// EstimateCost attaches a cost estimate for an infraction. hoursEstimate <= 0
// falls back to the documented default with a note. Returns (nil, nil) when no
// pricing entry can be matched; the caller surfaces the advisory. Every value
// that relied on a default records a note so assumptions are never silent.
func (o *Overlay) EstimateCost(ctx context.Context, infraction string, hoursEstimate float64) (*models.CostImpact, error) {
	// Direct lookup path: a literal reference code bypasses similarity search.
	if o.book != nil {
		for _, code := range FindRefCodes(infraction) {
			entry, err := o.book.GetByRefCode(ctx, code)
			if err != nil {
				return nil, err
			}
			if entry != nil {
				impact := o.estimateFromEntry(entry, nil, hoursEstimate)
				impact.Notes = append(impact.Notes,
					fmt.Sprintf("Matched by direct reference code lookup (%s).", code))
				return impact, nil
			}
		}
	}

	if o.store.Size() == 0 {
		return nil, nil
	}
	queryVec, err := o.embedder.Embed(ctx, infraction)
	if err != nil {
		return nil, fmt.Errorf("embed pricing query: %w", err)
	}
	hits := o.store.Search(queryVec, o.opts.TopK, o.opts.SimilarityFloor)
	if len(hits) == 0 {
		return nil, nil
	}

	var best *models.PricingEntry
	var adders []models.PricingEntry
	for _, h := range hits {
		for _, e := range ParseEntries(h.Chunk.Text) {
			entry := e
			if isAdder(entry.UnitType) {
				adders = append(adders, entry)
			} else if best == nil {
				best = &entry
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return o.estimateFromEntry(best, adders, hoursEstimate), nil
}

func isAdder(unitType string) bool {
	return strings.Contains(strings.ToLower(unitType), "adder")
}

// estimateFromEntry computes base cost, surcharges, and total savings.
func (o *Overlay) estimateFromEntry(best *models.PricingEntry, adders []models.PricingEntry, hoursEstimate float64) *models.CostImpact {
	impact := &models.CostImpact{
		RefCode:         best.RefCode,
		UnitDescription: best.UnitDescription,
		UnitType:        best.UnitType,
	}
	if best.Rate == nil {
		impact.Notes = append(impact.Notes,
			fmt.Sprintf("No rate recorded for %s; base cost unknown and no figure was fabricated.", best.RefCode))
		return impact
	}

	var base float64
	switch best.UnitType {
	case "per_hour":
		hours := hoursEstimate
		if hours <= 0 {
			hours = o.opts.DefaultHours
			impact.Notes = append(impact.Notes,
				fmt.Sprintf("Assumed %.0f labor hours; caller supplied no estimate.", hours))
		}
		base = *best.Rate * hours
	default: // per_unit, per_day, per_order
		base = *best.Rate
	}
	impact.BaseCost = &base

	for _, a := range adders {
		if strings.Contains(a.UnitType, "%") || strings.Contains(strings.ToLower(a.UnitType), "percent") {
			percent := o.opts.DefaultAdderPercent
			if a.Rate != nil {
				percent = *a.Rate
			} else {
				impact.Notes = append(impact.Notes,
					fmt.Sprintf("Adder %s has no percent on record; defaulted to %.0f%%.", a.RefCode, percent))
			}
			impact.AdderTotal += base * percent / 100
		} else if a.Rate != nil {
			impact.AdderTotal += *a.Rate
		} else {
			impact.Notes = append(impact.Notes,
				fmt.Sprintf("Flat adder %s has no rate on record and was skipped.", a.RefCode))
		}
	}

	total := base + impact.AdderTotal
	impact.TotalSavings = &total
	if o.logger != nil {
		o.logger.Debug("cost impact estimated",
			zap.String("ref_code", impact.RefCode),
			zap.Float64("base_cost", base),
			zap.Float64("total_savings", total))
	}
	return impact
}
