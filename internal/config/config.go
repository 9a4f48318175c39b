// Package config provides configuration loading and structs for speclens.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Pricing    PricingConfig    `yaml:"pricing"`
	Watch      WatchConfig      `yaml:"watch"`
}

// StorageConfig holds paths for the corpus blobs and the pricing database.
type StorageConfig struct {
	SpecCorpusPath    string `yaml:"spec_corpus_path"`
	PricingCorpusPath string `yaml:"pricing_corpus_path"`
	PricingDBPath     string `yaml:"pricing_db_path"`
}

// EmbeddingConfig holds embedder backend settings.
type EmbeddingConfig struct {
	Backend           string `yaml:"backend"` // "mock" or "onnx"
	ModelPath         string `yaml:"model_path"`
	Dimensions        int    `yaml:"dimensions"`
	MaxTokens         int    `yaml:"max_tokens"`
	CacheSize         int    `yaml:"cache_size"`
	MaxBatchSize      int    `yaml:"max_batch_size"`
	MinBatchSize      int    `yaml:"min_batch_size"`
	MemorySoftLimitMB int    `yaml:"memory_soft_limit_mb"`
}

// ChunkSizing holds chunker sizing for one corpus type.
type ChunkSizing struct {
	OptimalSize  int     `yaml:"optimal_size"`
	MaxSize      int     `yaml:"max_size"`
	MinSize      int     `yaml:"min_size"`
	OverlapRatio float64 `yaml:"overlap_ratio"`
}

// ChunkingConfig holds chunker sizing per corpus type.
type ChunkingConfig struct {
	Spec    ChunkSizing `yaml:"spec"`
	Pricing ChunkSizing `yaml:"pricing"`
}

// ClassifierConfig holds the classification thresholds. These are empirical
// heuristics, tunable per deployment.
type ClassifierConfig struct {
	TopK            int     `yaml:"top_k"`
	SimilarityFloor float64 `yaml:"similarity_floor"`
	MinMatches      int     `yaml:"min_matches"`
	MinConfidence   float64 `yaml:"min_confidence"`
}

// PricingConfig holds cost-estimation parameters.
type PricingConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityFloor     float64 `yaml:"similarity_floor"`
	DefaultHours        float64 `yaml:"default_hours"`
	DefaultAdderPercent float64 `yaml:"default_adder_percent"`
}

// WatchConfig holds directory watch settings for auto-ingestion.
type WatchConfig struct {
	SpecDirectories    []string `yaml:"spec_directories"`
	PricingDirectories []string `yaml:"pricing_directories"`
	Extensions         []string `yaml:"extensions"`
	Recursive          *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.SpecCorpusPath = expandPath(cfg.Storage.SpecCorpusPath, configDir)
	cfg.Storage.PricingCorpusPath = expandPath(cfg.Storage.PricingCorpusPath, configDir)
	cfg.Storage.PricingDBPath = expandPath(cfg.Storage.PricingDBPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	for i := range cfg.Watch.SpecDirectories {
		cfg.Watch.SpecDirectories[i] = expandPath(cfg.Watch.SpecDirectories[i], configDir)
	}
	for i := range cfg.Watch.PricingDirectories {
		cfg.Watch.PricingDirectories[i] = expandPath(cfg.Watch.PricingDirectories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
