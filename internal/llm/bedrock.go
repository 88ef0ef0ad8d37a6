package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mwilhelmy/recall/internal/memory"
)

// DefaultBedrockModel produces 1024-dimensional vectors.
const DefaultBedrockModel = "amazon.titan-embed-text-v2:0"

// BedrockEmbedder implements Embedder using Amazon Bedrock Titan embeddings.
type BedrockEmbedder struct {
	client    *bedrockruntime.Client
	modelID   string
	dimension int
}

var _ Embedder = (*BedrockEmbedder)(nil)

// NewBedrockEmbedder creates an embedder backed by the Bedrock runtime.
// Credentials come from the default AWS chain (env, shared config, IMDS).
func NewBedrockEmbedder(ctx context.Context, region, modelID string, dimension int) (*BedrockEmbedder, error) {
	if modelID == "" {
		modelID = DefaultBedrockModel
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockEmbedder{
		client:    bedrockruntime.NewFromConfig(awsCfg),
		modelID:   modelID,
		dimension: dimension,
	}, nil
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed generates an embedding vector for the given text.
func (e *BedrockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, gatewayError("bedrock invoke", err)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", memory.ErrGateway, err)
	}

	if len(resp.Embedding) != e.dimension {
		return nil, fmt.Errorf("%w: dimension mismatch: got %d, want %d (model: %s)",
			memory.ErrGateway, len(resp.Embedding), e.dimension, e.modelID)
	}

	return resp.Embedding, nil
}

// Model returns the Bedrock model identifier.
func (e *BedrockEmbedder) Model() string {
	return e.modelID
}

// Dimension returns the expected embedding dimension.
func (e *BedrockEmbedder) Dimension() int {
	return e.dimension
}
