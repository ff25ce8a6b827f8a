package router

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/embedding"
	"github.com/skillgate/skillgate/internal/model"
)

func testStore() *Store {
	return &Store{
		Version: "1",
		Model:   "test",
		Skills: []SkillVector{
			{
				Name:      "write-tests",
				Embedding: []float64{1, 0, 0},
				Keywords:  []string{"test", "unit test"},
			},
			{
				Name:      "deploy-infra",
				Embedding: []float64{0, 1, 0},
				Keywords:  []string{"deploy", "terraform"},
			},
		},
	}
}

func newTestRouter(t *testing.T, emb embedding.Embedder) *Router {
	t.Helper()
	r, err := New(Options{Embedder: emb})
	require.NoError(t, err)
	require.NoError(t, r.Initialize(testStore()))
	return r
}

// fakeEmbedder maps query substrings to fixed vectors for deterministic tests.
type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Info() embedding.Info { return embedding.Info{Model: "fake", Dim: f.dim} }

func (f fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	switch {
	case strings.Contains(text, "test"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(text, "deploy"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func TestRouteImmediateMode(t *testing.T) {
	r := newTestRouter(t, fakeEmbedder{dim: 3})
	res, err := r.Route(context.Background(), "please write a unit test for this")
	require.NoError(t, err)
	assert.Equal(t, model.ModeImmediate, res.Mode)
	require.NotEmpty(t, res.Candidates)
	assert.Equal(t, "write-tests", res.Candidates[0].SkillName)
	assert.GreaterOrEqual(t, res.ProcessingTimeMs, int64(0))
}

func TestRouteChatModeOnNoMatch(t *testing.T) {
	r := newTestRouter(t, fakeEmbedder{dim: 3})
	res, err := r.Route(context.Background(), "what's the weather like today")
	require.NoError(t, err)
	assert.Equal(t, model.ModeChat, res.Mode)
}

func TestRouteDeterministicTieBreak(t *testing.T) {
	r := newTestRouter(t, fakeEmbedder{dim: 3})
	res, err := r.Route(context.Background(), "something unrelated")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 2)
	// Both score 0; lexicographic order breaks the tie.
	assert.Equal(t, "deploy-infra", res.Candidates[0].SkillName)
	assert.Equal(t, "write-tests", res.Candidates[1].SkillName)
}

func TestQueryEmbeddingCacheReused(t *testing.T) {
	calls := 0
	counting := fakeEmbedderFunc(func(ctx context.Context, text string) ([]float32, error) {
		calls++
		return []float32{1, 0, 0}, nil
	})
	r := newTestRouter(t, counting)
	ctx := context.Background()
	_, err := r.Route(ctx, "run tests")
	require.NoError(t, err)
	_, err = r.Route(ctx, "run tests")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second call with identical query must hit the cache")
}

func TestInitializeRejectsDimMismatch(t *testing.T) {
	r, err := New(Options{Embedder: fakeEmbedder{dim: 8}})
	require.NoError(t, err)
	err = r.Initialize(testStore())
	assert.ErrorIs(t, err, model.ErrConfigError)
}

func TestNewRequiresEmbedder(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, model.ErrConfigError)
}

type fakeEmbedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f fakeEmbedderFunc) Info() embedding.Info { return embedding.Info{Model: "fake", Dim: 3} }
func (f fakeEmbedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}
