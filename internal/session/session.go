// Package session orchestrates the query-to-ranked-results retrieval loop:
// normalize input, embed once, search once, return results unmodified.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mwilhelmy/recall/internal/llm"
	"github.com/mwilhelmy/recall/internal/memory"
)

// ChatModel is the chat completion collaborator. Satisfied by *llm.Model;
// substitutable with a stub in tests.
type ChatModel interface {
	Complete(ctx context.Context, systemPrompt string, history []llm.ChatMessage, userText string) (string, error)
}

const recommendPrompt = `You are a helpful recommendation assistant. The user describes what they are looking for; the context lists the closest matches from the memory store with their relevance scores. Recommend from the context only. If nothing in the context fits, say so.`

// Session owns one retrieval conversation: an embedder, a store, an
// optional chat model and the accumulated transcript. Single logical
// session; not safe for concurrent use and not meant to be shared.
type Session struct {
	id           string
	embedder     llm.Embedder
	store        memory.Store
	model        ChatModel
	conversation *Conversation
	timeout      time.Duration
	log          *slog.Logger
}

// New creates a session. model may be nil when chat synthesis is not
// needed; historyLimit <= 0 keeps the transcript unbounded.
func New(embedder llm.Embedder, store memory.Store, model ChatModel, timeout time.Duration, historyLimit int, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	id := uuid.New().String()[:8]
	return &Session{
		id:           id,
		embedder:     embedder,
		store:        store,
		model:        model,
		conversation: NewConversation(historyLimit),
		timeout:      timeout,
		log:          log.With("session", id),
	}
}

// ID returns the short session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Conversation exposes the accumulated transcript.
func (s *Session) Conversation() *Conversation {
	return s.conversation
}

// Query embeds text and returns ranked matches from the store.
//
// Empty or whitespace-only text is rejected before any gateway call.
// Gateway and store failures propagate wrapped in ErrRetrieval; there is
// no caching and no retry.
func (s *Session) Query(ctx context.Context, collection, text string, limit int, minRelevance float64) ([]memory.SearchResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: query text is empty", memory.ErrValidation)
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	embedding, err := s.embedder.Embed(embedCtx, trimmed)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", memory.ErrRetrieval, err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	results, err := s.store.Search(searchCtx, collection, embedding, limit, minRelevance)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", memory.ErrRetrieval, err)
	}

	s.log.Debug("query complete", "collection", collection, "results", len(results))
	return results, nil
}

// Recommend runs Query and asks the chat model for a reply grounded in the
// results, threading the accumulated conversation history. The exchange is
// appended to the transcript on success.
func (s *Session) Recommend(ctx context.Context, collection, text string, limit int, minRelevance float64) (string, []memory.SearchResult, error) {
	if s.model == nil {
		return "", nil, fmt.Errorf("%w: chat model not configured", memory.ErrConfig)
	}

	results, err := s.Query(ctx, collection, text, limit, minRelevance)
	if err != nil {
		return "", nil, err
	}

	prompt := recommendPrompt
	if len(results) > 0 {
		prompt += "\n\nContext:\n" + formatContext(results)
	} else {
		prompt += "\n\nThe memory store returned no matches for this request."
	}

	chatCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	reply, err := s.model.Complete(chatCtx, prompt, s.conversation.History(), text)
	if err != nil {
		return "", results, fmt.Errorf("%w: complete: %w", memory.ErrRetrieval, err)
	}

	s.conversation.AppendTurn(text, reply)
	return reply, results, nil
}

// formatContext renders search results for the chat prompt.
func formatContext(results []memory.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (relevance %.2f)\n", i+1, r.Record.ExternalID, r.Relevance)
		fmt.Fprintf(&b, "   %s\n", r.Record.Description)
		if r.Record.AdditionalMetadata != "" {
			fmt.Fprintf(&b, "   %s\n", r.Record.AdditionalMetadata)
		}
	}
	return b.String()
}
