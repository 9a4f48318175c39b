// Package main is the speclens CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/config"
	"github.com/clearline/speclens/internal/embedding"
	"github.com/clearline/speclens/internal/models"
	"github.com/clearline/speclens/internal/service"
	"github.com/clearline/speclens/internal/watcher"
	"github.com/clearline/speclens/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/speclens/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
	}
	return config.Load(path)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "ingest-spec":
		runIngest(true)
	case "ingest-pricing":
		runIngest(false)
	case "classify":
		runClassify()
	case "stats":
		runStats()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("speclens version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// buildService loads config and constructs the classification core.
func buildService(configPath string) (*service.Service, *config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	backend := buildEmbedder(cfg, logger)
	svc, err := service.New(cfg, backend, service.WithLogger(logger))
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, cfg, logger, nil
}

// buildEmbedder picks the configured backend, falling back to the
// deterministic mock when ONNX is unavailable.
func buildEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	if cfg.Embedding.Backend == "mock" {
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	onnx, err := embedding.NewONNXEmbedder(cfg.Embedding.ModelPath, cfg.Embedding.Dimensions, cfg.Embedding.MaxTokens)
	if err != nil {
		logger.Warn("ONNX embedder unavailable, using mock embedder", zap.Error(err))
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	return onnx
}

func runIngest(spec bool) {
	name := "ingest-pricing"
	if spec {
		name = "ingest-spec"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	mode := fs.String("mode", "append", "ingest mode: append or replace")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Printf("Usage: speclens %s [flags] <file>\n", name)
		os.Exit(1)
	}
	path := fs.Arg(0)
	ingestMode := models.IngestMode(*mode)
	if ingestMode != models.ModeAppend && ingestMode != models.ModeReplace {
		fmt.Printf("Invalid mode %q (append or replace)\n", *mode)
		os.Exit(1)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Failed to read file: %v\n", err)
		os.Exit(1)
	}

	svc, _, logger, err := buildService(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer svc.Close()

	ctx := context.Background()
	var result *models.IngestResult
	if spec {
		result, err = svc.IngestSpec(ctx, string(raw), filepath.Base(path), ingestMode)
	} else {
		result, err = svc.IngestPricing(ctx, string(raw), filepath.Base(path), ingestMode)
	}
	if err != nil {
		fmt.Printf("Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Status: %s, chunks added: %d, total chunks: %d\n",
		result.Status, result.ChunksAdded, result.TotalChunks)
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	hours := fs.Float64("hours", 0, "labor hours estimate for per-hour rates (0 = default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: speclens classify [flags] <infraction text>")
		os.Exit(1)
	}
	text := strings.Join(fs.Args(), " ")

	svc, _, logger, err := buildService(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer svc.Close()

	result, err := svc.ClassifyInfractionWithHours(context.Background(), text, *hours)
	if err != nil {
		fmt.Printf("Classification failed: %v\n", err)
		os.Exit(1)
	}

	if *outputFormat == "json" {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}
	fmt.Printf("Status:     %s\n", result.Status)
	fmt.Printf("Confidence: %.1f%%\n", result.Confidence)
	fmt.Printf("Matches:    %d\n", result.MatchCount)
	for _, r := range result.Reasons {
		fmt.Printf("  - %s\n", r)
	}
	if result.CostImpact != nil {
		ci := result.CostImpact
		if ci.BaseCost != nil {
			fmt.Printf("Base cost:  $%.2f (%s, %s)\n", *ci.BaseCost, ci.RefCode, ci.UnitType)
		}
		if ci.TotalSavings != nil {
			fmt.Printf("Est. savings: $%.2f\n", *ci.TotalSavings)
		}
		for _, n := range ci.Notes {
			fmt.Printf("  note: %s\n", n)
		}
	}
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	svc, _, logger, err := buildService(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer svc.Close()

	stats := svc.CorpusStats()
	if *outputFormat == "json" {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}
	printCorpus := func(name string, cs models.CorpusStats) {
		fmt.Printf("%s corpus: %d chunks, %d sources, %d dimensions\n",
			name, cs.TotalChunks, cs.TotalSources, cs.Dimensions)
		for _, src := range cs.Sources {
			fmt.Printf("  %s  (%d chunks, %s)\n", src.Filename, src.ChunkCount, src.ContentHash[:12])
		}
	}
	printCorpus("Spec", stats.Spec)
	printCorpus("Pricing", stats.Pricing)
	fmt.Printf("Embedding cache: %d/%d entries, %d hits, %d misses, %d evictions\n",
		stats.Cache.Size, stats.Cache.Capacity, stats.Cache.Hits, stats.Cache.Misses, stats.Cache.Evictions)
}

func runWatch() {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	svc, cfg, logger, err := buildService(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	defer svc.Close()

	if len(cfg.Watch.SpecDirectories) == 0 && len(cfg.Watch.PricingDirectories) == 0 {
		fmt.Println("No watch directories configured (watch.spec_directories / watch.pricing_directories)")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestFile := func(path string, spec bool) {
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("failed to read dropped file", zap.String("path", path), zap.Error(err))
			return
		}
		var result *models.IngestResult
		if spec {
			result, err = svc.IngestSpec(ctx, string(raw), filepath.Base(path), models.ModeAppend)
		} else {
			result, err = svc.IngestPricing(ctx, string(raw), filepath.Base(path), models.ModeAppend)
		}
		if err != nil {
			logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("document ingested",
			zap.String("path", path),
			zap.String("status", result.Status),
			zap.Int("chunks_added", result.ChunksAdded))
	}

	var watchers []*watcher.Watcher
	if len(cfg.Watch.SpecDirectories) > 0 {
		w := watcher.NewWatcher(cfg.Watch.SpecDirectories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
			func(path string) { ingestFile(path, true) }, watcher.WithLogger(logger))
		watchers = append(watchers, w)
	}
	if len(cfg.Watch.PricingDirectories) > 0 {
		w := watcher.NewWatcher(cfg.Watch.PricingDirectories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
			func(path string) { ingestFile(path, false) }, watcher.WithLogger(logger))
		watchers = append(watchers, w)
	}
	for _, w := range watchers {
		if err := w.Start(ctx); err != nil {
			fmt.Printf("Failed to start watcher: %v\n", err)
			os.Exit(1)
		}
	}
	defer func() {
		for _, w := range watchers {
			w.Stop()
		}
	}()

	fmt.Println("Watching for documents. Press Ctrl+C to stop.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func printUsage() {
	fmt.Println(`speclens - spec-corpus infraction classification

Usage:
  speclens ingest-spec [flags] <file>     Ingest a specification document
  speclens ingest-pricing [flags] <file>  Ingest a pricing reference document
  speclens classify [flags] <text>        Classify a flagged infraction
  speclens stats [flags]                  Show corpus and cache statistics
  speclens watch [flags]                  Auto-ingest documents from watched dirs
  speclens version                        Show version
  speclens help                           Show this help

Common Flags:
  --config string   Config file path (default: /usr/local/etc/speclens/config.yaml)

Ingest Flags:
  --mode string     append or replace (default: append)

Classify Flags:
  --hours float     Labor hours estimate for per-hour rates (default: configured)
  --output string   text or json (default: text)`)
}
