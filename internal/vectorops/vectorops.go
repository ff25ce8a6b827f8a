// Package vectorops implements the scoring primitives shared by the semantic
// router: cosine similarity over embedding vectors, a regex-based keyword
// matcher, and the score-fusion blend that combines them.
package vectorops

import (
	"math"
	"regexp"
	"strings"
	"sync"
)

// Cosine computes the cosine similarity between a and b, computing both
// magnitudes on every call (CosineWithCache reuses a corpus vector's
// magnitude across queries). A zero-length vector on either side yields a
// similarity of 0, never NaN.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	magA := magnitude(a)
	magB := magnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

func magnitude(v []float64) float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	return math.Sqrt(sumSq)
}

// MagnitudeCache memoizes vector magnitudes by identity key (e.g. skill name),
// sparing repeated sqrt computation when the same corpus vector is scored
// against many distinct queries within a single router instance.
type MagnitudeCache struct {
	mu    sync.Mutex
	cache map[string]float64
}

// NewMagnitudeCache returns an empty cache.
func NewMagnitudeCache() *MagnitudeCache {
	return &MagnitudeCache{cache: make(map[string]float64)}
}

// Get returns the cached magnitude for key, computing and storing it from v on
// a cache miss.
func (c *MagnitudeCache) Get(key string, v []float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.cache[key]; ok {
		return m
	}
	m := magnitude(v)
	c.cache[key] = m
	return m
}

// CosineWithCache is Cosine but reuses a's magnitude from cache under key.
func CosineWithCache(cache *MagnitudeCache, key string, a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	magA := cache.Get(key, a)
	magB := magnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

// KeywordMatch is one candidate's accumulated keyword-match result.
type KeywordMatch struct {
	CandidateID     string
	Score           float64
	MatchedKeywords []string
}

// KeywordMatcher builds a case-insensitive regex per keyword (escaping regex
// metacharacters, with a word boundary on each side of the keyword that
// starts or ends with a word character) and matches free text against a candidate's
// keyword list, saturating the score at 1.0 when multiple keywords hit.
type KeywordMatcher struct {
	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

// NewKeywordMatcher returns an empty matcher. Patterns are compiled lazily and
// cached per keyword so the same keyword reused across skills is compiled once.
func NewKeywordMatcher() *KeywordMatcher {
	return &KeywordMatcher{patterns: make(map[string]*regexp.Regexp)}
}

func (m *KeywordMatcher) patternFor(keyword string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok := m.patterns[keyword]; ok {
		return re
	}
	// \b only holds next to a word character, so a keyword edge such as the
	// "++" of "c++" gets no boundary assertion.
	isWord := func(b byte) bool {
		return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
	}
	expr := `(?i)`
	if isWord(keyword[0]) {
		expr += `\b`
	}
	expr += regexp.QuoteMeta(keyword)
	if isWord(keyword[len(keyword)-1]) {
		expr += `\b`
	}
	re := regexp.MustCompile(expr)
	m.patterns[keyword] = re
	return re
}

// Match scores a single candidate's keywords against text, returning a result
// with Score in [0,1] and the subset of keywords that hit. Score is 1.0 as
// soon as one keyword hits; additional hits only accumulate MatchedKeywords.
func (m *KeywordMatcher) Match(candidateID, text string, keywords []string) KeywordMatch {
	result := KeywordMatch{CandidateID: candidateID}
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if m.patternFor(kw).MatchString(text) {
			result.MatchedKeywords = append(result.MatchedKeywords, kw)
		}
	}
	if len(result.MatchedKeywords) > 0 {
		result.Score = 1.0
	}
	return result
}

// FusionWeights configures the linear blend between keyword and embedding
// scores. Defaults mirror spec.md §4.A: w_kw=0.3, w_emb=0.7.
type FusionWeights struct {
	Keyword   float64
	Embedding float64
}

// DefaultFusionWeights returns the spec's default RRF-style blend weights.
func DefaultFusionWeights() FusionWeights {
	return FusionWeights{Keyword: 0.3, Embedding: 0.7}
}

// Fuse combines a keyword score and an embedding score into a single value in
// [0,1], clamping the result.
func Fuse(weights FusionWeights, keywordScore, embeddingScore float64) float64 {
	combined := weights.Keyword*keywordScore + weights.Embedding*embeddingScore
	if combined < 0 {
		return 0
	}
	if combined > 1 {
		return 1
	}
	return combined
}
