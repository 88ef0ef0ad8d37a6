package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mwilhelmy/recall/internal/llm"
	"github.com/mwilhelmy/recall/internal/memory"
)

// stubEmbedder returns a fixed vector and counts calls.
type stubEmbedder struct {
	calls     int
	embedding []float32
	err       error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.embedding, nil
}

func (s *stubEmbedder) Model() string  { return "stub" }
func (s *stubEmbedder) Dimension() int { return len(s.embedding) }

// stubStore records search invocations and returns canned results.
type stubStore struct {
	searchCalls int
	results     []memory.SearchResult
	err         error
}

func (s *stubStore) Upsert(ctx context.Context, rec memory.Record) error { return nil }

func (s *stubStore) Search(ctx context.Context, collection string, queryEmbedding []float32, limit int, minRelevance float64) ([]memory.SearchResult, error) {
	s.searchCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubStore) Delete(ctx context.Context, collection, externalID string) error { return nil }
func (s *stubStore) Close(ctx context.Context) error                                 { return nil }

// stubModel echoes a fixed reply and captures the history it received.
type stubModel struct {
	reply   string
	history []llm.ChatMessage
	err     error
}

func (s *stubModel) Complete(ctx context.Context, systemPrompt string, history []llm.ChatMessage, userText string) (string, error) {
	s.history = append([]llm.ChatMessage(nil), history...)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newTestSession(e *stubEmbedder, st *stubStore, m ChatModel) *Session {
	var model ChatModel
	if m != nil {
		model = m
	}
	return New(e, st, model, time.Second, 0, nil)
}

func TestQueryRejectsEmptyText(t *testing.T) {
	tests := []string{"", "   ", "\t\n  "}

	for _, input := range tests {
		embedder := &stubEmbedder{embedding: []float32{1, 0}}
		store := &stubStore{}
		sess := newTestSession(embedder, store, nil)

		_, err := sess.Query(context.Background(), "docs", input, 5, 0.0)
		if !errors.Is(err, memory.ErrValidation) {
			t.Errorf("Query(%q) = %v, want ErrValidation", input, err)
		}
		if embedder.calls != 0 {
			t.Errorf("Query(%q) called the embedder %d times, want 0", input, embedder.calls)
		}
		if store.searchCalls != 0 {
			t.Errorf("Query(%q) called the store %d times, want 0", input, store.searchCalls)
		}
	}
}

func TestQueryEmbedsOnceSearchesOnce(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{1, 0}}
	store := &stubStore{results: []memory.SearchResult{
		{Record: memory.Record{ExternalID: "b"}, Relevance: 0.9},
		{Record: memory.Record{ExternalID: "a"}, Relevance: 0.7},
	}}
	sess := newTestSession(embedder, store, nil)

	results, err := sess.Query(context.Background(), "docs", "jupyter notebooks", 5, 0.6)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if embedder.calls != 1 {
		t.Errorf("embedder called %d times, want 1", embedder.calls)
	}
	if store.searchCalls != 1 {
		t.Errorf("store searched %d times, want 1", store.searchCalls)
	}

	// Results pass through unmodified.
	if len(results) != 2 || results[0].Record.ExternalID != "b" || results[1].Record.ExternalID != "a" {
		t.Errorf("results altered by session: %+v", results)
	}
}

func TestQueryWrapsGatewayFailure(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("%w: boom", memory.ErrGateway)}
	store := &stubStore{}
	sess := newTestSession(embedder, store, nil)

	_, err := sess.Query(context.Background(), "docs", "anything", 5, 0.0)
	if !errors.Is(err, memory.ErrRetrieval) {
		t.Errorf("Query = %v, want ErrRetrieval", err)
	}
	if !errors.Is(err, memory.ErrGateway) {
		t.Errorf("Query = %v, want underlying ErrGateway preserved", err)
	}
	if store.searchCalls != 0 {
		t.Errorf("store searched after embed failure")
	}
}

func TestQueryWrapsStoreFailure(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{1}}
	store := &stubStore{err: fmt.Errorf("%w: unavailable", memory.ErrStore)}
	sess := newTestSession(embedder, store, nil)

	_, err := sess.Query(context.Background(), "docs", "anything", 5, 0.0)
	if !errors.Is(err, memory.ErrRetrieval) || !errors.Is(err, memory.ErrStore) {
		t.Errorf("Query = %v, want ErrRetrieval wrapping ErrStore", err)
	}
}

func TestRecommendThreadsHistory(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{1}}
	store := &stubStore{results: []memory.SearchResult{
		{Record: memory.Record{ExternalID: "Blade Runner", Description: "a replicant hunt"}, Relevance: 0.91},
	}}
	model := &stubModel{reply: "Watch Blade Runner."}
	sess := newTestSession(embedder, store, model)

	reply, results, err := sess.Recommend(context.Background(), "movies", "something moody and sci-fi", 3, 0.6)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if reply != "Watch Blade Runner." {
		t.Errorf("reply = %q", reply)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
	if len(model.history) != 0 {
		t.Errorf("first turn should see empty history, got %d messages", len(model.history))
	}
	if sess.Conversation().Len() != 2 {
		t.Errorf("transcript has %d turns, want 2", sess.Conversation().Len())
	}

	// Second turn sees the first exchange.
	if _, _, err := sess.Recommend(context.Background(), "movies", "something lighter", 3, 0.6); err != nil {
		t.Fatalf("Recommend second turn: %v", err)
	}
	if len(model.history) != 2 {
		t.Fatalf("second turn history has %d messages, want 2", len(model.history))
	}
	if model.history[0].Role != SpeakerUser || model.history[0].Content != "something moody and sci-fi" {
		t.Errorf("history[0] = %+v", model.history[0])
	}
	if model.history[1].Role != SpeakerModel || model.history[1].Content != "Watch Blade Runner." {
		t.Errorf("history[1] = %+v", model.history[1])
	}
}

func TestRecommendWithoutModel(t *testing.T) {
	sess := newTestSession(&stubEmbedder{embedding: []float32{1}}, &stubStore{}, nil)
	_, _, err := sess.Recommend(context.Background(), "movies", "anything", 3, 0.6)
	if !errors.Is(err, memory.ErrConfig) {
		t.Errorf("Recommend without model = %v, want ErrConfig", err)
	}
}

func TestRecommendFailedCompletionKeepsTranscript(t *testing.T) {
	embedder := &stubEmbedder{embedding: []float32{1}}
	store := &stubStore{}
	model := &stubModel{err: fmt.Errorf("%w: rate limited", memory.ErrGateway)}
	sess := newTestSession(embedder, store, model)

	_, _, err := sess.Recommend(context.Background(), "movies", "anything", 3, 0.6)
	if !errors.Is(err, memory.ErrRetrieval) {
		t.Errorf("Recommend = %v, want ErrRetrieval", err)
	}
	if sess.Conversation().Len() != 0 {
		t.Errorf("failed exchange must not be recorded, transcript has %d turns", sess.Conversation().Len())
	}
}
