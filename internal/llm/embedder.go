// Package llm provides the embedding and chat completion gateways.
//
// Both gateways are opaque external collaborators: text in, vector or text
// out. Everything here is plumbing around langchaingo and the AWS SDK plus
// dimension validation; nothing downstream talks to a vendor API directly.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwilhelmy/recall/internal/config"
	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder generates a fixed-length vector for a text.
// Deterministic for a fixed model/version; substitutable with a stub in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Model returns the embedding model name.
	Model() string

	// Dimension returns the embedding vector dimension.
	// Constant within a collection; validated on every call.
	Dimension() int
}

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(cfg config.Config) (Embedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderAzure:
		llm, err := openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(cfg.Endpoint),
			openai.WithToken(cfg.APIKey),
			openai.WithAPIVersion(cfg.APIVersion),
			openai.WithModel(cfg.ChatDeployment),
			openai.WithEmbeddingModel(cfg.EmbedDeployment),
		)
		if err != nil {
			return nil, fmt.Errorf("create azure openai client: %w", err)
		}
		return newLangchainEmbedder(llm, cfg.EmbedModel, cfg.EmbedDimension)

	case config.ProviderOpenAI:
		llm, err := openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithEmbeddingModel(cfg.EmbedModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return newLangchainEmbedder(llm, cfg.EmbedModel, cfg.EmbedDimension)

	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithModel(cfg.EmbedModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return newLangchainEmbedder(llm, cfg.EmbedModel, cfg.EmbedDimension)

	case config.ProviderBedrock:
		return NewBedrockEmbedder(context.Background(), cfg.AWSRegion, cfg.EmbedModel, cfg.EmbedDimension)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", memory.ErrConfig, cfg.EmbedProvider)
	}
}

// langchainEmbedder wraps a langchaingo embedder with dimension validation.
type langchainEmbedder struct {
	model     embeddings.Embedder
	modelName string
	dimension int
}

var _ Embedder = (*langchainEmbedder)(nil)

func newLangchainEmbedder(client embeddings.EmbedderClient, modelName string, dimension int) (*langchainEmbedder, error) {
	model, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return &langchainEmbedder{
		model:     model,
		modelName: modelName,
		dimension: dimension,
	}, nil
}

// Embed generates an embedding vector for text.
func (e *langchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	textLen := len(text)
	slog.Debug("embedding text", "model", e.modelName, "text_len", textLen)

	start := time.Now()
	vectors, err := e.model.EmbedDocuments(ctx, []string{text})
	duration := time.Since(start)

	if err != nil {
		slog.Warn("embedding failed", "model", e.modelName, "text_len", textLen,
			"duration_ms", duration.Milliseconds(), "error", err)
		return nil, gatewayError("embed", err)
	}

	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", memory.ErrGateway)
	}

	embedding := vectors[0]
	if len(embedding) != e.dimension {
		return nil, fmt.Errorf("%w: dimension mismatch: got %d, want %d (model: %s)",
			memory.ErrGateway, len(embedding), e.dimension, e.modelName)
	}

	slog.Debug("embedding complete", "model", e.modelName, "text_len", textLen,
		"duration_ms", duration.Milliseconds())
	return embedding, nil
}

// Model returns the embedding model name.
func (e *langchainEmbedder) Model() string {
	return e.modelName
}

// Dimension returns the expected embedding dimension.
func (e *langchainEmbedder) Dimension() int {
	return e.dimension
}

// gatewayError classifies an external call failure: deadline expiry maps to
// ErrTimeout, everything else to ErrGateway.
func gatewayError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", memory.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", memory.ErrGateway, op, err)
}
