// Package router implements the Semantic Router (spec.md §4.B): it classifies
// a query into an activation mode and a ranked skill list using a fixed
// vector store and a pluggable embedding function.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/skillgate/skillgate/internal/embedding"
	"github.com/skillgate/skillgate/internal/model"
	"github.com/skillgate/skillgate/internal/telemetry"
	"github.com/skillgate/skillgate/internal/vectorops"
)

// Thresholds configures the mode boundaries; defaults per spec.md §4.B.
type Thresholds struct {
	Immediate  float64
	Suggestion float64
}

// DefaultThresholds returns the spec's documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{Immediate: 0.85, Suggestion: 0.70}
}

// Options configures a Router.
type Options struct {
	Embedder      embedding.Embedder
	Weights       vectorops.FusionWeights
	Thresholds    Thresholds
	QueryCacheCap int // bounded query-embedding cache size; default 256
	Logger        telemetry.Logger
	Metrics       telemetry.Metrics
}

// RoutingResult is the output of Route.
type RoutingResult struct {
	Mode             model.Mode
	Candidates       []model.Candidate
	Signals          []model.Signal
	ProcessingTimeMs int64
}

// Router implements the Semantic Router contract: initialize() then route(query).
type Router struct {
	store    *Store
	embedder embedding.Embedder
	weights  vectorops.FusionWeights
	thresh   Thresholds
	logger   telemetry.Logger
	metrics  telemetry.Metrics

	matcher   *vectorops.KeywordMatcher
	magnitude *vectorops.MagnitudeCache

	mu    sync.Mutex
	cache *lru.LRU[string, []float64]
}

// New constructs a Router. Call Initialize before Route.
func New(opts Options) (*Router, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", model.ErrConfigError)
	}
	if opts.Weights == (vectorops.FusionWeights{}) {
		opts.Weights = vectorops.DefaultFusionWeights()
	}
	if opts.Thresholds == (Thresholds{}) {
		opts.Thresholds = DefaultThresholds()
	}
	cap := opts.QueryCacheCap
	if cap <= 0 {
		cap = 256
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	// simplelru.LRU evicts the least-recently-used entry. A cache hit in Route
	// refreshes that query, so eviction is not strict insertion order, but it is
	// deterministic for a fixed sequence of queries.
	cache, err := lru.NewLRU[string, []float64](cap, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query cache: %v", model.ErrConfigError, err)
	}
	return &Router{
		embedder:  opts.Embedder,
		weights:   opts.Weights,
		thresh:    opts.Thresholds,
		logger:    logger,
		metrics:   metrics,
		matcher:   vectorops.NewKeywordMatcher(),
		magnitude: vectorops.NewMagnitudeCache(),
		cache:     cache,
	}, nil
}

// Initialize loads and validates the vector store, and ensures the embedder's
// declared dimension matches the store's embeddings.
func (r *Router) Initialize(store *Store) error {
	if store == nil {
		return fmt.Errorf("%w: vector store is nil", model.ErrConfigError)
	}
	info := r.embedder.Info()
	if info.Dim > 0 {
		for _, sk := range store.Skills {
			if len(sk.Embedding) != info.Dim {
				return fmt.Errorf("%w: embedder dim %d does not match vector store skill %q dim %d",
					model.ErrConfigError, info.Dim, sk.Name, len(sk.Embedding))
			}
		}
	}
	r.store = store
	return nil
}

// Route classifies query into a mode and a ranked skill list.
func (r *Router) Route(ctx context.Context, query string) (RoutingResult, error) {
	if r.store == nil {
		return RoutingResult{}, fmt.Errorf("%w: router not initialized", model.ErrConfigError)
	}
	start := time.Now()

	queryVec, err := r.queryEmbedding(ctx, query)
	if err != nil {
		return RoutingResult{}, fmt.Errorf("embed query: %w", err)
	}

	candidates := make([]model.Candidate, 0, len(r.store.Skills))
	signals := make([]model.Signal, 0, len(r.store.Skills)*2)
	for _, sk := range r.store.Skills {
		kw := r.matcher.Match(sk.Name, query, sk.Keywords)
		emb := vectorops.CosineWithCache(r.magnitude, sk.Name, sk.Embedding, float64Slice(queryVec))
		combined := vectorops.Fuse(r.weights, kw.Score, emb)

		signals = append(signals,
			model.Signal{Type: "keyword", Score: kw.Score, Source: sk.Name},
			model.Signal{Type: "embedding", Score: emb, Source: sk.Name},
		)
		candidates = append(candidates, model.Candidate{
			SkillName:       sk.Name,
			Score:           combined,
			MatchedPatterns: kw.MatchedKeywords,
		})
	}

	sortCandidatesDescending(candidates)

	mode := model.ModeChat
	if len(candidates) > 0 {
		top := candidates[0].Score
		switch {
		case top >= r.thresh.Immediate:
			mode = model.ModeImmediate
		case top >= r.thresh.Suggestion:
			mode = model.ModeSuggestion
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	r.metrics.RecordTimer("router.route.duration", time.Since(start), "mode", string(mode))
	r.logger.Debug(ctx, "router: routed query", "mode", string(mode), "candidates", len(candidates))

	return RoutingResult{
		Mode:             mode,
		Candidates:       candidates,
		Signals:          signals,
		ProcessingTimeMs: elapsed,
	}, nil
}

// queryEmbedding returns the cached embedding for query, computing it on miss.
func (r *Router) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	r.mu.Lock()
	if v, ok := r.cache.Get(query); ok {
		r.mu.Unlock()
		return float32Slice(v), nil
	}
	r.mu.Unlock()

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache.Add(query, float64Slice(vec))
	r.mu.Unlock()
	return vec, nil
}

func sortCandidatesDescending(c []model.Candidate) {
	// Insertion sort keeps the ordering stable and deterministic for ties
	// (lexicographic by skill name), matching spec.md's determinism requirement.
	for i := 1; i < len(c); i++ {
		j := i
		for j > 0 && less(c[j], c[j-1]) {
			c[j], c[j-1] = c[j-1], c[j]
			j--
		}
	}
}

func less(a, b model.Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SkillName < b.SkillName
}

func float64Slice(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func float32Slice(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
