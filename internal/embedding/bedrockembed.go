package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// InvokeModelClient is the subset of the AWS Bedrock runtime client required
// by the adapter. It matches *bedrockruntime.Client so callers can pass either
// the real client or a fake in tests.
type InvokeModelClient interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock implements Embedder by invoking a Titan-family embedding model
// through AWS Bedrock's InvokeModel API (Bedrock has no Converse-style
// embeddings endpoint, unlike chat completion).
type Bedrock struct {
	client  InvokeModelClient
	modelID string
	dim     int
}

// NewBedrock builds an Embedder backed by client, invoking modelID (e.g.
// "amazon.titan-embed-text-v2:0") which produces vectors of dimension dim.
func NewBedrock(client InvokeModelClient, modelID string, dim int) (*Bedrock, error) {
	if client == nil {
		return nil, errors.New("client is required")
	}
	if modelID == "" {
		return nil, errors.New("model id is required")
	}
	return &Bedrock{client: client, modelID: modelID, dim: dim}, nil
}

// Info implements Embedder.
func (b *Bedrock) Info() Info { return Info{Model: b.modelID, Dim: b.dim} }

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements Embedder.
func (b *Bedrock) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("bedrock embeddings: encode request: %w", err)
	}
	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock embeddings: %w", err)
	}
	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("bedrock embeddings: decode response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("bedrock embeddings: empty response")
	}
	return Normalize(resp.Embedding), nil
}
