package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
)

// EmbeddingsClient is the subset of the OpenAI SDK required by the adapter; it
// matches openai.Client.Embeddings so callers can pass the real client or a
// fake in tests, mirroring the corpus's RuntimeClient narrowing pattern.
type EmbeddingsClient interface {
	New(ctx context.Context, body openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error)
}

// OpenAI implements Embedder by calling the OpenAI embeddings endpoint.
type OpenAI struct {
	client EmbeddingsClient
	model  string
	dim    int
}

// NewOpenAI builds an Embedder backed by client, using model (e.g.
// "text-embedding-3-small") and its published dimension.
func NewOpenAI(client EmbeddingsClient, model string, dim int) (*OpenAI, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	return &OpenAI{client: client, model: model, dim: dim}, nil
}

// Info implements Embedder.
func (o *OpenAI) Info() Info { return Info{Model: o.model, Dim: o.dim} }

// Embed implements Embedder.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embeddings: empty response")
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return Normalize(vec), nil
}
