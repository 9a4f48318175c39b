package models

// Status is the classification outcome for an infraction.
type Status string

const (
	// StatusValid means the infraction stands; the spec corpus does not excuse it.
	StatusValid Status = "VALID"
	// StatusRepealable means the spec corpus plausibly excuses the finding.
	StatusRepealable Status = "REPEALABLE"
)

// MatchedChunk is a retrieved chunk annotated with its similarity to the query.
type MatchedChunk struct {
	Text          string      `json:"text"`
	SourceFile    string      `json:"source_file"`
	SectionHeader string      `json:"section_header,omitempty"`
	SectionType   SectionType `json:"section_type,omitempty"`
	Similarity    float64     `json:"similarity"`
}

// ClassificationResult is the outcome of classifying one infraction.
type ClassificationResult struct {
	InfractionText string         `json:"infraction_text"`
	Status         Status         `json:"status"`
	Confidence     float64        `json:"confidence"` // 0-100
	MatchCount     int            `json:"match_count"`
	MatchedChunks  []MatchedChunk `json:"matched_chunks"`
	Reasons        []string       `json:"reasons"`
	RiskFactors    []string       `json:"risk_factors,omitempty"`
	SuccessFactors []string       `json:"success_factors,omitempty"`
	CostImpact     *CostImpact    `json:"cost_impact,omitempty"`
}

// CostImpact is a monetary estimate attached to a repealable classification.
// BaseCost and TotalSavings are nil when the matched pricing entry has no rate;
// Notes records every default or fallback the arithmetic relied on.
type CostImpact struct {
	RefCode         string   `json:"ref_code,omitempty"`
	UnitDescription string   `json:"unit_description,omitempty"`
	UnitType        string   `json:"unit_type,omitempty"`
	BaseCost        *float64 `json:"base_cost,omitempty"`
	AdderTotal      float64  `json:"adder_total"`
	TotalSavings    *float64 `json:"total_savings,omitempty"`
	Notes           []string `json:"notes,omitempty"`
}

// PricingEntry is one structured row of the pricing reference book.
type PricingEntry struct {
	RefCode         string   `json:"ref_code"`
	UnitDescription string   `json:"unit_description"`
	Rate            *float64 `json:"rate,omitempty"`
	UnitType        string   `json:"unit_type"`
}

// CacheStats reports embedding cache behavior for introspection.
type CacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Size      int   `json:"size"`
	Capacity  int   `json:"capacity"`
}

// ServiceStats aggregates both corpora plus embedding cache counters.
type ServiceStats struct {
	Spec    CorpusStats `json:"spec"`
	Pricing CorpusStats `json:"pricing"`
	Cache   CacheStats  `json:"cache"`
}
