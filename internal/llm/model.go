package llm

import (
	"context"
	"fmt"

	"github.com/mwilhelmy/recall/internal/config"
	"github.com/mwilhelmy/recall/internal/memory"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ChatMessage is a single turn of conversation history.
type ChatMessage struct {
	Role    string // "user" or "assistant"
	Content string
}

// Model wraps a langchaingo chat model for completion with history.
type Model struct {
	llm         llms.Model
	modelName   string
	maxTokens   int
	temperature float64
	topP        float64
}

// NewModel creates a chat model based on configuration. The sampling
// parameters default to maxTokens=2000, temperature=0.7, topP=0.5 and are
// overridable through config.
func NewModel(cfg config.Config) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.ChatProvider {
	case config.ProviderAzure:
		model, err = openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(cfg.Endpoint),
			openai.WithToken(cfg.APIKey),
			openai.WithAPIVersion(cfg.APIVersion),
			openai.WithModel(cfg.ChatDeployment),
			openai.WithEmbeddingModel(cfg.EmbedDeployment),
		)
		if err != nil {
			return nil, fmt.Errorf("create azure openai model: %w", err)
		}

	case config.ProviderOpenAI:
		model, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.ChatModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.ChatModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	default:
		return nil, fmt.Errorf("%w: unsupported chat provider: %s", memory.ErrConfig, cfg.ChatProvider)
	}

	return &Model{
		llm:         model,
		modelName:   cfg.ChatModel,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}, nil
}

// Complete generates a reply to userText given a system prompt and prior
// conversation history, oldest turn first.
func (m *Model) Complete(ctx context.Context, systemPrompt string, history []ChatMessage, userText string) (string, error) {
	messages := make([]llms.MessageContent, 0, len(history)+2)
	if systemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	for _, msg := range history {
		role := llms.ChatMessageTypeHuman
		if msg.Role == "assistant" {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, msg.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, userText))

	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(m.maxTokens),
		llms.WithTemperature(m.temperature),
		llms.WithTopP(m.topP),
	)
	if err != nil {
		return "", gatewayError("chat completion", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no response choices", memory.ErrGateway)
	}

	return response.Choices[0].Content, nil
}

// Model returns the chat model name.
func (m *Model) Model() string {
	return m.modelName
}
