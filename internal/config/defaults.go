package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.SpecCorpusPath == "" {
		cfg.Storage.SpecCorpusPath = "/usr/local/var/speclens/data/spec_corpus.json"
	}
	if cfg.Storage.PricingCorpusPath == "" {
		cfg.Storage.PricingCorpusPath = "/usr/local/var/speclens/data/pricing_corpus.json"
	}
	if cfg.Storage.PricingDBPath == "" {
		cfg.Storage.PricingDBPath = "/usr/local/var/speclens/data/pricing.db"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/speclens/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxBatchSize == 0 {
		cfg.Embedding.MaxBatchSize = 32
	}
	if cfg.Embedding.MinBatchSize == 0 {
		cfg.Embedding.MinBatchSize = 4
	}
	if cfg.Embedding.MemorySoftLimitMB == 0 {
		cfg.Embedding.MemorySoftLimitMB = 512
	}
	applyChunkSizingDefaults(&cfg.Chunking.Spec, 1200, 1500, 120, 0.12)
	applyChunkSizingDefaults(&cfg.Chunking.Pricing, 300, 450, 60, 0.10)
	if cfg.Classifier.TopK == 0 {
		cfg.Classifier.TopK = 5
	}
	if cfg.Classifier.SimilarityFloor == 0 {
		cfg.Classifier.SimilarityFloor = 0.6
	}
	if cfg.Classifier.MinMatches == 0 {
		cfg.Classifier.MinMatches = 2
	}
	if cfg.Classifier.MinConfidence == 0 {
		cfg.Classifier.MinConfidence = 60
	}
	if cfg.Pricing.TopK == 0 {
		cfg.Pricing.TopK = 5
	}
	if cfg.Pricing.SimilarityFloor == 0 {
		cfg.Pricing.SimilarityFloor = 0.6
	}
	if cfg.Pricing.DefaultHours == 0 {
		cfg.Pricing.DefaultHours = 8
	}
	if cfg.Pricing.DefaultAdderPercent == 0 {
		cfg.Pricing.DefaultAdderPercent = 5
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md"}
	}
	// Recursive defaults to true when unset (nil).
	if (len(cfg.Watch.SpecDirectories) > 0 || len(cfg.Watch.PricingDirectories) > 0) && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}

func applyChunkSizingDefaults(s *ChunkSizing, optimal, max, min int, overlap float64) {
	if s.OptimalSize == 0 {
		s.OptimalSize = optimal
	}
	if s.MaxSize == 0 {
		s.MaxSize = max
	}
	if s.MinSize == 0 {
		s.MinSize = min
	}
	if s.OverlapRatio == 0 {
		s.OverlapRatio = overlap
	}
}
