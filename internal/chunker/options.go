// Package chunker splits specification and pricing text into bounded,
// overlapping, section-tagged chunks for embedding and retrieval.
package chunker

// Options controls chunk sizing and overlap. Sizes are in characters.
type Options struct {
	// OptimalSize is the target chunk length. Boundaries are deferred past it
	// when needed to avoid bisecting a structural entity.
	OptimalSize int
	// MaxSize is the hard ceiling. A single oversize sentence is wrapped at
	// word boundaries rather than emitted whole.
	MaxSize int
	// MinSize is the merge threshold: trailing chunks shorter than this are
	// merged into their predecessor when the result stays under MaxSize.
	MinSize int
	// OverlapRatio is the fraction of OptimalSize echoed from the tail of one
	// chunk into the head of the next chunk of the same section.
	OverlapRatio float64
}

// SpecOptions returns sizing defaults for specification prose.
func SpecOptions() Options {
	return Options{
		OptimalSize:  1200,
		MaxSize:      1500,
		MinSize:      120,
		OverlapRatio: 0.12,
	}
}

// PricingOptions returns sizing defaults for dense pricing/audit text.
func PricingOptions() Options {
	return Options{
		OptimalSize:  300,
		MaxSize:      450,
		MinSize:      60,
		OverlapRatio: 0.10,
	}
}

// applyDefaults fills zero values from SpecOptions.
func (o *Options) applyDefaults() {
	def := SpecOptions()
	if o.OptimalSize <= 0 {
		o.OptimalSize = def.OptimalSize
	}
	if o.MaxSize <= 0 {
		o.MaxSize = def.MaxSize
	}
	if o.MaxSize < o.OptimalSize {
		o.MaxSize = o.OptimalSize
	}
	if o.MinSize <= 0 {
		o.MinSize = def.MinSize
	}
	if o.MinSize > o.OptimalSize {
		o.MinSize = o.OptimalSize
	}
	if o.OverlapRatio <= 0 || o.OverlapRatio >= 1 {
		o.OverlapRatio = def.OverlapRatio
	}
}
