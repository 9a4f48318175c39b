package embedding

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/clearline/speclens/internal/models"
)

// BatchOptions controls adaptive batch sizing for CachedEmbedder.
type BatchOptions struct {
	// MaxBatchSize is the batch size used under normal memory conditions.
	MaxBatchSize int
	// MinBatchSize is the floor the batch shrinks to under memory pressure.
	MinBatchSize int
	// MemorySoftLimitMB shrinks batches when heap allocation exceeds it.
	MemorySoftLimitMB int
}

// DefaultBatchOptions returns the standard batching parameters.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxBatchSize:      32,
		MinBatchSize:      4,
		MemorySoftLimitMB: 512,
	}
}

func (o *BatchOptions) applyDefaults() {
	def := DefaultBatchOptions()
	if o.MaxBatchSize <= 0 {
		o.MaxBatchSize = def.MaxBatchSize
	}
	if o.MinBatchSize <= 0 {
		o.MinBatchSize = def.MinBatchSize
	}
	if o.MinBatchSize > o.MaxBatchSize {
		o.MinBatchSize = o.MaxBatchSize
	}
	if o.MemorySoftLimitMB <= 0 {
		o.MemorySoftLimitMB = def.MemorySoftLimitMB
	}
}

// CachedEmbedder wraps a backend Embedder with an LRU cache and adaptive
// batching. Backend errors are classified as ErrProviderTimeout or
// ErrProviderFailure; the wrapper never retries.
type CachedEmbedder struct {
	inner  Embedder
	cache  *Cache
	opts   BatchOptions
	logger *zap.Logger // optional; when set, logs debug events

	// heapAllocBytes reports current heap usage; replaceable in tests.
	heapAllocBytes func() uint64
}

// CachedEmbedderOption configures a CachedEmbedder.
type CachedEmbedderOption func(*CachedEmbedder)

// WithLogger sets a logger for debug output (batch sizing, cache warmup).
func WithLogger(l *zap.Logger) CachedEmbedderOption {
	return func(e *CachedEmbedder) { e.logger = l }
}

// NewCachedEmbedder wraps inner with a cache of cacheSize entries.
func NewCachedEmbedder(inner Embedder, cacheSize int, opts BatchOptions, options ...CachedEmbedderOption) *CachedEmbedder {
	opts.applyDefaults()
	e := &CachedEmbedder{
		inner:          inner,
		cache:          NewCache(cacheSize),
		opts:           opts,
		heapAllocBytes: heapAlloc,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// batchSize returns the batch size for the current memory conditions.
func (e *CachedEmbedder) batchSize() int {
	limit := uint64(e.opts.MemorySoftLimitMB) * 1024 * 1024
	if e.heapAllocBytes() > limit {
		if e.logger != nil {
			e.logger.Debug("embedding batch size reduced under memory pressure",
				zap.Int("batch_size", e.opts.MinBatchSize))
		}
		return e.opts.MinBatchSize
	}
	return e.opts.MaxBatchSize
}

// Embed returns the embedding for a single text.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch resolves texts against the cache and embeds the misses through
// the backend in adaptively sized sub-batches.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		if v, ok := e.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	size := e.batchSize()
	for start := 0; start < len(missTexts); start += size {
		end := start + size
		if end > len(missTexts) {
			end = len(missTexts)
		}
		vecs, err := e.inner.EmbedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, classifyProviderError(err)
		}
		for j, v := range vecs {
			idx := missIdx[start+j]
			out[idx] = v
			e.cache.Set(texts[idx], v)
		}
	}
	return out, nil
}

// Dimensions returns the backend embedding dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// CacheStats returns the cache counters for introspection.
func (e *CachedEmbedder) CacheStats() models.CacheStats {
	return e.cache.Stats()
}

// Close closes the backend embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}
